package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// DevSessionSecret 是开发环境的默认会话密钥，release 模式下禁止使用。
const DevSessionSecret = "folio-dev-secret"

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr string `envconfig:"LISTEN_ADDR"`
	Port       string `envconfig:"PORT" default:"8080"`
	GinMode    string `envconfig:"GIN_MODE" default:"release"`

	DatabaseDriver string `envconfig:"DATABASE_DRIVER" default:"sqlite"`
	DatabaseDSN    string `envconfig:"DATABASE_DSN" default:"folio.db"`

	SessionSecret   string        `envconfig:"SESSION_SECRET" default:"folio-dev-secret"`
	JWTSecret       string        `envconfig:"JWT_SECRET"`
	JWTTTL          time.Duration `envconfig:"JWT_TTL" default:"24h"`
	AutomationToken string        `envconfig:"AUTOMATION_TOKEN"`

	ContactWebhookURL   string        `envconfig:"CONTACT_WEBHOOK_URL"`
	SubscribeWebhookURL string        `envconfig:"SUBSCRIBE_WEBHOOK_URL"`
	SocialWebhookURL    string        `envconfig:"SOCIAL_WEBHOOK_URL"`
	WebhookTimeout      time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"10s"`

	UploadDir     string `envconfig:"UPLOAD_DIR" default:"web/static/uploads"`
	UploadURLPath string `envconfig:"UPLOAD_URL_PATH" default:"/static/uploads"`

	// S3 兼容存储；Bucket 为空时使用本地目录
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Bucket    string `envconfig:"S3_BUCKET"`
	S3Key       string `envconfig:"S3_KEY"`
	S3Secret    string `envconfig:"S3_SECRET"`
	S3PublicURL string `envconfig:"S3_PUBLIC_URL"`

	RedisURL       string        `envconfig:"REDIS_URL"`
	RenderCacheTTL time.Duration `envconfig:"RENDER_CACHE_TTL" default:"1h"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	PublishSchedule string `envconfig:"PUBLISH_SCHEDULE" default:"@every 1m"`

	TelemetryEnabled bool   `envconfig:"TELEMETRY_ENABLED" default:"false"`
	JaegerURL        string `envconfig:"JAEGER_URL"`
	ServiceName      string `envconfig:"SERVICE_NAME" default:"folio"`

	SiteBaseURL     string `envconfig:"SITE_BASE_URL" default:"http://localhost:8080"`
	DefaultPageSize int    `envconfig:"DEFAULT_PAGE_SIZE" default:"9"`

	AdminUsername string `envconfig:"ADMIN_USERNAME"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`
	AdminEmail    string `envconfig:"ADMIN_EMAIL"`
}

// Load 从 .env 与环境变量读取应用配置，并为缺失项提供默认值。
func Load() (AppConfig, error) {
	_ = godotenv.Load()

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("load config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func (c *AppConfig) normalize() {
	c.Port = strings.TrimSpace(c.Port)
	c.ListenAddr = strings.TrimSpace(c.ListenAddr)
	if c.ListenAddr == "" {
		c.ListenAddr = fmt.Sprintf(":%s", c.Port)
	}
	c.DatabaseDriver = strings.ToLower(strings.TrimSpace(c.DatabaseDriver))
	c.SiteBaseURL = strings.TrimRight(strings.TrimSpace(c.SiteBaseURL), "/")
	c.UploadURLPath = "/" + strings.Trim(strings.TrimSpace(c.UploadURLPath), "/")
	c.GinMode = strings.ToLower(strings.TrimSpace(c.GinMode))
	// 非 release 模式下 JWT 回退到会话密钥
	if c.JWTSecret == "" && !c.Release() {
		c.JWTSecret = c.SessionSecret
	}
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 9
	}
}

// Validate 检查互相关联的配置项。
func (c AppConfig) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.DatabaseDriver == "postgres" && strings.TrimSpace(c.DatabaseDSN) == "" {
		return fmt.Errorf("DATABASE_DSN is required for postgres")
	}
	if c.S3Bucket != "" && (c.S3Key == "" || c.S3Secret == "") {
		return fmt.Errorf("S3_KEY and S3_SECRET are required when S3_BUCKET is set")
	}
	if c.TelemetryEnabled && c.JaegerURL == "" {
		return fmt.Errorf("JAEGER_URL is required when telemetry is enabled")
	}
	if c.Release() {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET is required in release mode")
		}
		if c.SessionSecret == "" || c.SessionSecret == DevSessionSecret {
			return fmt.Errorf("SESSION_SECRET must be set in release mode")
		}
		if c.JWTSecret == c.SessionSecret {
			return fmt.Errorf("JWT_SECRET must differ from SESSION_SECRET")
		}
	}
	return nil
}

// Release reports whether gin runs in release mode.
func (c AppConfig) Release() bool {
	return c.GinMode == "release"
}

// UseS3 reports whether uploads go to object storage.
func (c AppConfig) UseS3() bool {
	return c.S3Bucket != ""
}
