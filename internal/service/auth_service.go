package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"exam-bank/backend/config"
	"exam-bank/backend/internal/dto"
	"exam-bank/backend/pkg/jwt"
)

var (
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrAuthNotConfigured  = errors.New("未启用登录认证")
)

// AuthService 认证业务接口
// 后台账号来自配置文件 (auth.accounts)，不落库
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, claims *jwt.Claims) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type authService struct {
	accounts  map[string]config.AccountConfig
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例
// blacklist 为 nil 时登出只在客户端生效
func NewAuthService(
	cfg *config.AuthConfig,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) AuthService {
	accounts := make(map[string]config.AccountConfig, len(cfg.Accounts))
	for _, a := range cfg.Accounts {
		accounts[a.Username] = a
	}
	return &authService{
		accounts:  accounts,
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		logger:    logger,
	}
}

// dummyHash 账号不存在时仍执行一次 bcrypt 比较，避免通过耗时枚举用户名
var dummyHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3/5E1zR6bYw8M1rJ6uY5GzW")

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	if s.jwtMgr == nil {
		return nil, ErrAuthNotConfigured
	}

	// 1. 查找账号
	account, ok := s.accounts[req.Username]
	hash := dummyHash
	if ok {
		hash = []byte(account.PasswordHash)
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword(hash, []byte(req.Password)); err != nil || !ok {
		s.logger.Info("登录失败", zap.String("username", req.Username))
		return nil, ErrInvalidCredentials
	}

	role := account.Role
	if role == "" {
		role = "admin"
	}

	// 3. 生成 Token
	accessToken, err := s.jwtMgr.GenerateAccessToken(account.Username, role)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User: dto.UserResponse{
			Username: account.Username,
			Role:     role,
		},
	}, nil
}

// Logout 将当前 Token 加入黑名单直至其自然过期
func (s *authService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if s.blacklist == nil || claims == nil || claims.ID == "" {
		return nil
	}
	if err := s.blacklist.BlacklistToken(ctx, claims.ID, claims.RemainingTTL()); err != nil {
		s.logger.Error("Token 加入黑名单失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *authService) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if s.blacklist == nil || jti == "" {
		return false, nil
	}
	return s.blacklist.IsBlacklisted(ctx, jti)
}
