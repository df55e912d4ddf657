package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"exam-bank/backend/config"
	"exam-bank/backend/internal/dto"
	"exam-bank/backend/pkg/jwt"
)

// fakeBlacklist 内存黑名单
type fakeBlacklist struct {
	entries map[string]time.Duration
}

func (f *fakeBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	f.entries[jti] = ttl
	return nil
}

func (f *fakeBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	_, ok := f.entries[jti]
	return ok, nil
}

func setupTestAuthService(t *testing.T) (AuthService, *jwt.Manager, *fakeBlacklist) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("生成密码哈希失败: %v", err)
	}
	cfg := &config.AuthConfig{
		Enabled:        true,
		JWTSecret:      "test-secret",
		AccessTokenTTL: time.Hour,
		Accounts: []config.AccountConfig{
			{Username: "admin", PasswordHash: string(hash)},
			{Username: "viewer", PasswordHash: string(hash), Role: "viewer"},
		},
	}
	mgr := jwt.NewManager(cfg)
	bl := &fakeBlacklist{entries: map[string]time.Duration{}}
	return NewAuthService(cfg, mgr, bl, zap.NewNop()), mgr, bl
}

func TestAuthService_Login(t *testing.T) {
	svc, mgr, _ := setupTestAuthService(t)

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "admin", Password: "s3cret"})
	if err != nil {
		t.Fatalf("登录失败: %v", err)
	}
	if resp.ExpiresIn != 3600 || resp.User.Role != "admin" {
		t.Errorf("登录响应不符: %+v", resp)
	}
	claims, err := mgr.ParseToken(resp.AccessToken)
	if err != nil || claims.UserID != "admin" {
		t.Errorf("签发的 Token 无法解析: %v", err)
	}

	resp, err = svc.Login(context.Background(), &dto.LoginRequest{Username: "viewer", Password: "s3cret"})
	if err != nil || resp.User.Role != "viewer" {
		t.Errorf("viewer 角色不符: %+v %v", resp, err)
	}
}

func TestAuthService_Login_Invalid(t *testing.T) {
	svc, _, _ := setupTestAuthService(t)
	ctx := context.Background()

	for _, req := range []dto.LoginRequest{
		{Username: "admin", Password: "wrong"},
		{Username: "nobody", Password: "s3cret"},
	} {
		if _, err := svc.Login(ctx, &req); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("%s 期望 ErrInvalidCredentials，实际 %v", req.Username, err)
		}
	}

	noJWT := NewAuthService(&config.AuthConfig{}, nil, nil, zap.NewNop())
	if _, err := noJWT.Login(ctx, &dto.LoginRequest{Username: "admin", Password: "x"}); !errors.Is(err, ErrAuthNotConfigured) {
		t.Errorf("期望 ErrAuthNotConfigured，实际 %v", err)
	}
}

func TestAuthService_Logout(t *testing.T) {
	svc, mgr, bl := setupTestAuthService(t)
	ctx := context.Background()

	token, _ := mgr.GenerateAccessToken("admin", "admin")
	claims, err := mgr.ParseToken(token)
	if err != nil {
		t.Fatalf("解析 Token 失败: %v", err)
	}

	if revoked, _ := svc.IsRevoked(ctx, claims.ID); revoked {
		t.Fatal("登出前不应被吊销")
	}
	if err := svc.Logout(ctx, claims); err != nil {
		t.Fatalf("登出失败: %v", err)
	}
	if ttl := bl.entries[claims.ID]; ttl <= 0 || ttl > time.Hour {
		t.Errorf("黑名单 TTL 应为剩余有效期，实际=%v", ttl)
	}
	if revoked, _ := svc.IsRevoked(ctx, claims.ID); !revoked {
		t.Error("登出后应被吊销")
	}

	// 未配置黑名单时登出为空操作
	plain := NewAuthService(&config.AuthConfig{}, mgr, nil, zap.NewNop())
	if err := plain.Logout(ctx, claims); err != nil {
		t.Errorf("无黑名单时登出不应报错: %v", err)
	}
}
