package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort    int    `mapstructure:"http_port"`
	GRPCPort    int    `mapstructure:"grpc_port"`
	LogLevel    string `mapstructure:"log_level"`
	Env         string `mapstructure:"env"` // development | production
	ServiceName string `mapstructure:"service_name"`

	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	App       AppSettings     `mapstructure:"app"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Admin     AdminConfig     `mapstructure:"admin"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // mysql | sqlite
	DSN    string `mapstructure:"dsn"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type StorageConfig struct {
	Backend        string   `mapstructure:"backend"` // local | s3
	UploadDir      string   `mapstructure:"upload_dir"`
	PublicBaseURL  string   `mapstructure:"public_base_url"`
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes"`
	S3             S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket       string `mapstructure:"bucket"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

// RedisConfig is optional; an empty Addr disables the rate limiter.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
	// TrustedProxies lists CIDRs (or IPs) whose X-Forwarded-For and
	// X-Real-IP headers are believed. Empty means the peer address is used.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type AppSettings struct {
	DefaultPageSize int `mapstructure:"default_page_size"`
	MaxPageSize     int `mapstructure:"max_page_size"`
	BcryptCost      int `mapstructure:"bcrypt_cost"`
}

type AnalyticsConfig struct {
	Cron         string        `mapstructure:"cron"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
}

// AdminConfig holds the credentials of the bootstrap administrator.
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

var AppConfig Config

const defaultJWTSecret = "trendzn-secret-key"

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", 5000)
	v.SetDefault("grpc_port", 50051)
	v.SetDefault("log_level", "info")
	v.SetDefault("env", "development")
	v.SetDefault("service_name", "trendzn")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "trendzn.db")

	v.SetDefault("jwt.secret", defaultJWTSecret) // CHANGE THIS IN PRODUCTION
	v.SetDefault("jwt.issuer", "trendzn")
	v.SetDefault("jwt.ttl", 7*24*time.Hour)

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("storage.public_base_url", "")
	v.SetDefault("storage.max_upload_bytes", 10<<20)
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("storage.s3.use_path_style", false)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("rate_limit.requests", 20)
	v.SetDefault("rate_limit.window", time.Minute)
	v.SetDefault("rate_limit.trusted_proxies", []string{})

	v.SetDefault("app.default_page_size", 10)
	v.SetDefault("app.max_page_size", 100)
	v.SetDefault("app.bcrypt_cost", 12)

	v.SetDefault("analytics.cron", "5 0 * * *")
	v.SetDefault("analytics.startup_delay", 2*time.Second)

	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password", "")
}

// Load reads config.yaml from the given directories (or . and ./config),
// applies TRENDZN_* environment overrides and returns the decoded config.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("TRENDZN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("fatal error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// InitConfig loads the configuration into AppConfig and panics on failure.
func InitConfig() {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	AppConfig = *cfg
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Storage.Backend {
	case "local":
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unsupported storage backend %q", c.Storage.Backend)
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret must not be empty")
	}
	if c.IsProduction() && c.InsecureSecret() {
		return errors.New("jwt.secret must be changed from the built-in default in production")
	}
	if c.JWT.TTL <= 0 {
		return errors.New("jwt.ttl must be positive")
	}
	if c.App.DefaultPageSize < 1 || c.App.MaxPageSize < c.App.DefaultPageSize {
		return fmt.Errorf("invalid page sizes: default=%d max=%d", c.App.DefaultPageSize, c.App.MaxPageSize)
	}
	if c.App.BcryptCost < 4 || c.App.BcryptCost > 31 {
		return fmt.Errorf("app.bcrypt_cost must be between 4 and 31, got %d", c.App.BcryptCost)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// InsecureSecret reports whether the built-in development secret is in use.
func (c *Config) InsecureSecret() bool {
	return c.JWT.Secret == defaultJWTSecret
}
