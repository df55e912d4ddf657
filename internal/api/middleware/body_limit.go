package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"exam-bank/backend/pkg/response"
)

// BodyLimit 全局请求体大小限制（导入文件与 AI 文档上传共用）
// 处理器读取超限时返回 413，处理器已写出响应则不覆盖
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()

		if c.Writer.Written() {
			return
		}
		var tooLarge *http.MaxBytesError
		for _, ginErr := range c.Errors {
			if errors.As(ginErr.Err, &tooLarge) {
				response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
				return
			}
		}
	}
}
