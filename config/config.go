package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	AI        AIConfig        `mapstructure:"ai"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Events    EventsConfig    `mapstructure:"events"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Import    ImportConfig    `mapstructure:"import"`
	Export    ExportConfig    `mapstructure:"export"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	BaseURL      string     `mapstructure:"base_url"`
	BodyLimitMB  int64      `mapstructure:"body_limit_mb"`
	CORS         CORSConfig `mapstructure:"cors"`
	WriteTimeout int        `mapstructure:"write_timeout"` // 秒，导出与 AI 调用耗时较长
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig 数据库配置
// driver 取值 postgres | sqlite
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 缓存配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置
// Enabled=false 时所有请求以内置管理员身份执行（本地开发与内网部署）
type AuthConfig struct {
	Enabled        bool            `mapstructure:"enabled"`
	JWTSecret      string          `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration   `mapstructure:"access_token_ttl"`
	Accounts       []AccountConfig `mapstructure:"accounts"`
}

// AccountConfig 后台账号（密码为 bcrypt 哈希）
type AccountConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
	Role         string `mapstructure:"role"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"`
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig 滚动日志文件配置，Path 为空时只输出到标准输出
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// AIConfig 大模型出题配置
type AIConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	Model         string        `mapstructure:"model"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaskFailures  bool          `mapstructure:"mask_failures"`
	MaxInputChars int           `mapstructure:"max_input_chars"`
}

// StorageConfig 对象存储（MinIO）配置，用于缓存试卷导出文件
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// EventsConfig 领域事件配置
// driver 取值 gochannel | kafka
type EventsConfig struct {
	Driver  string   `mapstructure:"driver"`
	Brokers []string `mapstructure:"brokers"`
}

// TracingConfig 链路追踪配置
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	Endpoint    string `mapstructure:"endpoint"`
}

// RateLimitConfig 接口限流配置（每分钟请求数）
type RateLimitConfig struct {
	ParseFilePerMinute  int `mapstructure:"parse_file_per_minute"`
	AIGeneratePerMinute int `mapstructure:"ai_generate_per_minute"`
	LoginPerMinute      int `mapstructure:"login_per_minute"`
}

// ImportConfig 批量导入配置
type ImportConfig struct {
	MaxRows   int `mapstructure:"max_rows"`
	MaxErrors int `mapstructure:"max_errors"`
}

// ExportConfig 导出配置
type ExportConfig struct {
	PDFFontPath string `mapstructure:"pdf_font_path"` // 可选 TTF 字体，用于中文 PDF
	MaxRows     int    `mapstructure:"max_rows"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > .env > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("EXAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// 兼容通用的 OpenAI 环境变量名
	_ = v.BindEnv("ai.api_key", "EXAM_AI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("ai.base_url", "EXAM_AI_BASE_URL", "OPENAI_BASE_URL")
	_ = v.BindEnv("ai.model", "EXAM_AI_MODEL", "OPENAI_MODEL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.body_limit_mb", 20)
	v.SetDefault("server.write_timeout", 120)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "exam_bank")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Shanghai")
	v.SetDefault("db.sqlite_path", "exam_bank.db")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.access_token_ttl", "12h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file.max_size_mb", 100)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.max_age_days", 30)
	v.SetDefault("log.file.compress", true)

	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.model", "gpt-3.5-turbo")
	v.SetDefault("ai.timeout", "60s")
	v.SetDefault("ai.mask_failures", true)
	v.SetDefault("ai.max_input_chars", 3000)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.bucket", "exam-papers")

	v.SetDefault("events.driver", "gochannel")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "exam-bank")
	v.SetDefault("tracing.endpoint", "http://localhost:14268/api/traces")

	v.SetDefault("rate_limit.parse_file_per_minute", 10)
	v.SetDefault("rate_limit.ai_generate_per_minute", 50)
	v.SetDefault("rate_limit.login_per_minute", 20)

	v.SetDefault("import.max_rows", 5000)
	v.SetDefault("import.max_errors", 50)

	v.SetDefault("export.max_rows", 100000)
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("配置校验失败: db.driver 仅支持 postgres / sqlite，当前为 %q", c.Database.Driver)
	}
	if c.Auth.Enabled {
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
		}
		if len(c.Auth.JWTSecret) < 16 {
			return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
		}
		if len(c.Auth.Accounts) == 0 {
			return fmt.Errorf("配置校验失败: 启用认证时 auth.accounts 不能为空")
		}
	}
	switch c.Events.Driver {
	case "gochannel":
	case "kafka":
		if len(c.Events.Brokers) == 0 {
			return fmt.Errorf("配置校验失败: events.driver=kafka 时 events.brokers 不能为空")
		}
	default:
		return fmt.Errorf("配置校验失败: events.driver 仅支持 gochannel / kafka")
	}
	if c.Storage.Enabled && (c.Storage.Endpoint == "" || c.Storage.Bucket == "") {
		return fmt.Errorf("配置校验失败: 启用对象存储时 storage.endpoint 与 storage.bucket 不能为空")
	}
	if c.RateLimit.ParseFilePerMinute <= 0 || c.RateLimit.AIGeneratePerMinute <= 0 {
		return fmt.Errorf("配置校验失败: rate_limit 各项必须为正数")
	}
	if c.Import.MaxErrors <= 0 {
		c.Import.MaxErrors = 50
	}
	return nil
}
