package handler

import (
	"io"
	"mime/multipart"
	"strconv"

	"github.com/gin-gonic/gin"

	"exam-bank/backend/pkg/jwt"
	"exam-bank/backend/pkg/response"
)

// 上传文件大小上限
const maxUploadSize = 10 << 20

// CurrentOperator 从 Gin 上下文中提取操作人（JWT 中的 user_id）
// 未启用认证时为空串，由 Service 层记录为 system
func CurrentOperator(c *gin.Context) string {
	if v, ok := c.Get("user_id"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// CurrentRole 从 Gin 上下文中提取 role
func CurrentRole(c *gin.Context) string {
	if v, ok := c.Get("role"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// CurrentClaims 取出 JWT 中间件注入的 claims，未启用认证时为 nil
func CurrentClaims(c *gin.Context) *jwt.Claims {
	if v, ok := c.Get("claims"); ok {
		if claims, ok := v.(*jwt.Claims); ok {
			return claims
		}
	}
	return nil
}

// MustGetID 解析路径参数 :id，非法时写入 400 响应
// 调用方应在 ok=false 时直接 return
func MustGetID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, 10001, "ID 格式无效")
		return 0, false
	}
	return uint(id), true
}

// MustReadUpload 读取 multipart 表单中的 file 字段
func MustReadUpload(c *gin.Context) (string, []byte, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, 10001, "请上传文件（字段名 file）")
		return "", nil, false
	}
	if fh.Size > maxUploadSize {
		response.BadRequest(c, 10005, "上传文件过大")
		return "", nil, false
	}

	data, err := readFileHeader(fh)
	if err != nil {
		response.BadRequest(c, 10001, "读取上传文件失败")
		return "", nil, false
	}
	return fh.Filename, data, true
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxUploadSize))
}
