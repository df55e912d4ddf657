package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 9090\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("期望 port=9090，实际=%d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("期望默认 driver=postgres，实际=%s", cfg.Database.Driver)
	}
	if !cfg.AI.MaskFailures {
		t.Error("期望默认 ai.mask_failures=true")
	}
	if cfg.RateLimit.ParseFilePerMinute != 10 || cfg.RateLimit.AIGeneratePerMinute != 50 {
		t.Errorf("限流默认值不符: %+v", cfg.RateLimit)
	}
	if cfg.Import.MaxErrors != 50 {
		t.Errorf("期望 import.max_errors=50，实际=%d", cfg.Import.MaxErrors)
	}
}

func TestLoad_OpenAIEnvAlias(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "deepseek-chat")
	path := writeConfigFile(t, "db:\n  driver: sqlite\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if cfg.AI.APIKey != "sk-test" {
		t.Errorf("期望从 OPENAI_API_KEY 读取密钥，实际=%q", cfg.AI.APIKey)
	}
	if cfg.AI.Model != "deepseek-chat" {
		t.Errorf("期望 model=deepseek-chat，实际=%q", cfg.AI.Model)
	}
}

func TestLoad_PrefixedEnvOverridesFile(t *testing.T) {
	t.Setenv("EXAM_SERVER_PORT", "7000")
	path := writeConfigFile(t, "server:\n  port: 9090\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("期望环境变量覆盖为 7000，实际=%d", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: 8080},
			Database:  DatabaseConfig{Driver: "sqlite"},
			Events:    EventsConfig{Driver: "gochannel"},
			RateLimit: RateLimitConfig{ParseFilePerMinute: 10, AIGeneratePerMinute: 50},
			Import:    ImportConfig{MaxErrors: 50},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "合法配置", mutate: func(c *Config) {}},
		{name: "端口越界", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "未知数据库驱动", mutate: func(c *Config) { c.Database.Driver = "oracle" }, wantErr: true},
		{name: "启用认证但缺少密钥", mutate: func(c *Config) { c.Auth.Enabled = true }, wantErr: true},
		{name: "密钥过短", mutate: func(c *Config) {
			c.Auth.Enabled = true
			c.Auth.JWTSecret = "short"
			c.Auth.Accounts = []AccountConfig{{Username: "admin"}}
		}, wantErr: true},
		{name: "启用认证但无账号", mutate: func(c *Config) {
			c.Auth.Enabled = true
			c.Auth.JWTSecret = "0123456789abcdef0123"
		}, wantErr: true},
		{name: "kafka 缺少 brokers", mutate: func(c *Config) { c.Events.Driver = "kafka" }, wantErr: true},
		{name: "对象存储缺少 endpoint", mutate: func(c *Config) { c.Storage.Enabled = true }, wantErr: true},
		{name: "限流为零", mutate: func(c *Config) { c.RateLimit.ParseFilePerMinute = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err=%v, wantErr=%v", err, tt.wantErr)
			}
		})
	}
}
