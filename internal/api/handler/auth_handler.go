package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"exam-bank/backend/internal/dto"
	"exam-bank/backend/internal/service"
	"exam-bank/backend/pkg/response"
)

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Login 管理员登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.Error(c, http.StatusUnauthorized, 20001, "用户名或密码错误")
		case errors.Is(err, service.ErrAuthNotConfigured):
			response.BadRequest(c, 20002, "未启用登录认证")
		default:
			response.InternalError(c)
		}
		return
	}

	response.OK(c, result)
}

// Logout 登出，当前 Token 加入黑名单
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authSvc.Logout(c.Request.Context(), CurrentClaims(c)); err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, nil)
}

// Me 当前身份
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	username := CurrentOperator(c)
	if username == "" {
		username = "system"
	}
	response.OK(c, dto.UserResponse{Username: username, Role: CurrentRole(c)})
}
