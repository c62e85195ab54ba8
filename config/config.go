// Package config provides configuration management and environment variable handling for the application
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration of the registry service
type AppConfig struct {
	Database   DatabaseConfig   `json:"database"`
	Server     ServerConfig     `json:"server"`
	Security   SecurityConfig   `json:"security"`
	Token      TokenConfig      `json:"token"`
	Email      EmailConfig      `json:"email"`
	Logging    LoggingConfig    `json:"logging"`
	Metrics    MetricsConfig    `json:"metrics"`
	Redis      RedisConfig      `json:"redis"`
	NATS       NATSConfig       `json:"nats"`
	Storage    StorageConfig    `json:"storage"`
	Captcha    CaptchaConfig    `json:"captcha"`
	Scheduler  SchedulerConfig  `json:"scheduler"`
	Links      LinksConfig      `json:"links"`
	Deployment DeploymentConfig `json:"deployment"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
	AutoMigrate     bool          `json:"auto_migrate"`
}

// DSN renders the libpq connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
	ProxyHeader     string        `json:"proxy_header"`
	TrustedProxies  []string      `json:"trusted_proxies"`
}

// Address is host:port for the listener
func (s ServerConfig) Address() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

type SecurityConfig struct {
	AllowedOrigins   []string      `json:"allowed_origins"`
	AllowCredentials bool          `json:"allow_credentials"`
	AuthRateLimit    int           `json:"auth_rate_limit"`   // requests per window
	GlobalRateLimit  int           `json:"global_rate_limit"` // requests per window
	RateLimitWindow  time.Duration `json:"rate_limit_window"`
	IPBlacklist      []string      `json:"ip_blacklist"`
}

// TokenConfig signs newsletter unsubscribe links
type TokenConfig struct {
	SecretKey  string        `json:"-"`
	PrivateKey string        `json:"-"`
	PublicKey  string        `json:"-"`
	UseRSAKeys bool          `json:"use_rsa_keys"`
	TTL        time.Duration `json:"ttl"`
	Issuer     string        `json:"issuer"`
}

type EmailConfig struct {
	Provider  string `json:"provider"` // smtp, log
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"-"`
	FromEmail string `json:"from_email"`
	FromName  string `json:"from_name"`
}

type LoggingConfig struct {
	Level      string `json:"level"`  // debug, info, warn, error
	Format     string `json:"format"` // json, text
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"` // MB
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"` // days
	Compress   bool   `json:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Addr     string `json:"addr"`
	Password string `json:"-"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix"`
}

type NATSConfig struct {
	Enabled    bool   `json:"enabled"`
	URL        string `json:"url"`
	ClientName string `json:"client_name"`
}

type StorageConfig struct {
	UploadRoot string `json:"upload_root"`
}

type CaptchaConfig struct {
	TTL       time.Duration `json:"ttl"`
	Padding   int           `json:"padding"`
	ImageSize int           `json:"image_size"`
}

type SchedulerConfig struct {
	Enabled          bool          `json:"enabled"`
	CleanupSchedule  string        `json:"cleanup_schedule"`
	ExpirySchedule   string        `json:"expiry_schedule"`
	ReminderSchedule string        `json:"reminder_schedule"`
	DispatchSchedule string        `json:"dispatch_schedule"`
	JobTimeout       time.Duration `json:"job_timeout"`
}

// LinksConfig holds the public URLs embedded in outgoing emails
type LinksConfig struct {
	PasswordResetURL string `json:"password_reset_url"`
	UnsubscribeURL   string `json:"unsubscribe_url"`
}

type DeploymentConfig struct {
	Environment string `json:"environment"`
	Version     string `json:"version"`
	CommitHash  string `json:"commit_hash"`
	BuildTime   string `json:"build_time"`
}

// IsDevelopment reports whether the service runs in a local or development environment
func (d DeploymentConfig) IsDevelopment() bool {
	return d.Environment == "development" || d.Environment == "local"
}

// Load reads .env when present, then the environment, and validates the result
func Load() (*AppConfig, error) {
	if err := loadEnvFile(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &AppConfig{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "registry"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", time.Second),
			AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", false),
		},
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:       getEnvInt("SERVER_BODY_LIMIT", 12*1024*1024), // 12MB, above the 10MB document cap
			ProxyHeader:     getEnvString("SERVER_PROXY_HEADER", ""),
			TrustedProxies:  getEnvStringSlice("SERVER_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
		Security: SecurityConfig{
			AllowedOrigins:   getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", true),
			AuthRateLimit:    getEnvInt("AUTH_RATE_LIMIT", 20),
			GlobalRateLimit:  getEnvInt("GLOBAL_RATE_LIMIT", 2000),
			RateLimitWindow:  getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
			IPBlacklist:      getEnvStringSlice("IP_BLACKLIST", []string{}),
		},
		Token: TokenConfig{
			SecretKey:  getEnvString("TOKEN_SECRET_KEY", ""),
			PrivateKey: getEnvString("TOKEN_PRIVATE_KEY", ""),
			PublicKey:  getEnvString("TOKEN_PUBLIC_KEY", ""),
			UseRSAKeys: getEnvBool("TOKEN_USE_RSA_KEYS", false),
			TTL:        getEnvDuration("TOKEN_UNSUBSCRIBE_TTL", 90*24*time.Hour),
			Issuer:     getEnvString("TOKEN_ISSUER", "business-registry"),
		},
		Email: EmailConfig{
			Provider:  getEnvString("EMAIL_PROVIDER", "log"),
			Host:      getEnvString("EMAIL_HOST", ""),
			Port:      getEnvInt("EMAIL_PORT", 587),
			Username:  getEnvString("EMAIL_USERNAME", ""),
			Password:  getEnvString("EMAIL_PASSWORD", ""),
			FromEmail: getEnvString("EMAIL_FROM_EMAIL", "noreply@registry.local"),
			FromName:  getEnvString("EMAIL_FROM_NAME", "Business Registry"),
		},
		Logging: LoggingConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			Format:     getEnvString("LOG_FORMAT", "json"),
			FilePath:   getEnvString("LOG_FILE_PATH", ""),
			MaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:     getEnvInt("LOG_MAX_AGE", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Addr:     getEnvString("REDIS_ADDR", "localhost:6379"),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Prefix:   getEnvString("REDIS_PREFIX", "registry:"),
		},
		NATS: NATSConfig{
			Enabled:    getEnvBool("NATS_ENABLED", false),
			URL:        getEnvString("NATS_URL", "nats://localhost:4222"),
			ClientName: getEnvString("NATS_CLIENT_NAME", "business-registry"),
		},
		Storage: StorageConfig{
			UploadRoot: getEnvString("UPLOAD_ROOT", "data/uploads"),
		},
		Captcha: CaptchaConfig{
			TTL:       getEnvDuration("CAPTCHA_TTL", 2*time.Minute),
			Padding:   getEnvInt("CAPTCHA_PADDING", 8),
			ImageSize: getEnvInt("CAPTCHA_IMAGE_SIZE", 220),
		},
		Scheduler: SchedulerConfig{
			Enabled:          getEnvBool("SCHEDULER_ENABLED", true),
			CleanupSchedule:  getEnvString("SCHEDULER_CLEANUP", ""),
			ExpirySchedule:   getEnvString("SCHEDULER_EXPIRY", ""),
			ReminderSchedule: getEnvString("SCHEDULER_REMINDERS", ""),
			DispatchSchedule: getEnvString("SCHEDULER_DISPATCH", ""),
			JobTimeout:       getEnvDuration("SCHEDULER_JOB_TIMEOUT", 5*time.Minute),
		},
		Links: LinksConfig{
			PasswordResetURL: getEnvString("PASSWORD_RESET_URL", "http://localhost:3000/reset-password"),
			UnsubscribeURL:   getEnvString("UNSUBSCRIBE_URL", "http://localhost:8080/api/v1/newsletters/unsubscribe"),
		},
		Deployment: DeploymentConfig{
			Environment: getEnvString("APP_ENV", "production"),
			Version:     getEnvString("VERSION", "1.0.0"),
			CommitHash:  getEnvString("COMMIT_HASH", "unknown"),
			BuildTime:   getEnvString("BUILD_TIME", "unknown"),
		},
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFile fills unset variables from path. A missing file is not an error.
func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// ValidateConfig collects every problem instead of stopping at the first one
func ValidateConfig(cfg *AppConfig) error {
	var problems []string

	if cfg.Database.Host == "" {
		problems = append(problems, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		problems = append(problems, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		problems = append(problems, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		problems = append(problems, "DB_USER is required")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		problems = append(problems, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		problems = append(problems, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		problems = append(problems, "SERVER_WRITE_TIMEOUT must be positive")
	}
	if cfg.Server.BodyLimit <= 0 {
		problems = append(problems, "SERVER_BODY_LIMIT must be positive")
	}

	if cfg.Security.GlobalRateLimit <= 0 || cfg.Security.AuthRateLimit <= 0 {
		problems = append(problems, "rate limits must be positive")
	}

	if cfg.Token.UseRSAKeys {
		if cfg.Token.PrivateKey == "" || cfg.Token.PublicKey == "" {
			problems = append(problems, "TOKEN_PRIVATE_KEY and TOKEN_PUBLIC_KEY are required when TOKEN_USE_RSA_KEYS is set")
		}
	} else if len(cfg.Token.SecretKey) < 32 {
		problems = append(problems, "TOKEN_SECRET_KEY must be at least 32 characters long")
	}
	if cfg.Token.TTL <= 0 {
		problems = append(problems, "TOKEN_UNSUBSCRIBE_TTL must be positive")
	}

	switch cfg.Email.Provider {
	case "log":
	case "smtp":
		if cfg.Email.Host == "" {
			problems = append(problems, "EMAIL_HOST is required for the smtp provider")
		}
		if cfg.Email.FromEmail == "" {
			problems = append(problems, "EMAIL_FROM_EMAIL is required for the smtp provider")
		}
	default:
		problems = append(problems, "EMAIL_PROVIDER must be one of: smtp, log")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if cfg.Logging.Level != "" && !slices.Contains(validLevels, cfg.Logging.Level) {
		problems = append(problems, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
	}

	if cfg.Redis.Enabled && cfg.Redis.Addr == "" {
		problems = append(problems, "REDIS_ADDR is required when redis is enabled")
	}
	if cfg.NATS.Enabled && cfg.NATS.URL == "" {
		problems = append(problems, "NATS_URL is required when nats is enabled")
	}
	if cfg.Storage.UploadRoot == "" {
		problems = append(problems, "UPLOAD_ROOT is required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}
