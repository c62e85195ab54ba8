package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *AppConfig {
	return &AppConfig{
		Database: DatabaseConfig{Host: "localhost", Port: 5432, Name: "registry", User: "postgres"},
		Server:   ServerConfig{Port: 8080, ReadTimeout: time.Second, WriteTimeout: time.Second, BodyLimit: 1024},
		Security: SecurityConfig{GlobalRateLimit: 100, AuthRateLimit: 10},
		Token:    TokenConfig{SecretKey: "0123456789abcdef0123456789abcdef", TTL: time.Hour},
		Email:    EmailConfig{Provider: "log"},
		Logging:  LoggingConfig{Level: "info"},
		Storage:  StorageConfig{UploadRoot: "data/uploads"},
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(*AppConfig) {}},
		{name: "missing db host", mutate: func(c *AppConfig) { c.Database.Host = "" }, wantErr: "DB_HOST is required"},
		{name: "bad port", mutate: func(c *AppConfig) { c.Server.Port = 70000 }, wantErr: "SERVER_PORT"},
		{name: "short secret", mutate: func(c *AppConfig) { c.Token.SecretKey = "short" }, wantErr: "TOKEN_SECRET_KEY"},
		{name: "rsa without keys", mutate: func(c *AppConfig) { c.Token.UseRSAKeys = true }, wantErr: "TOKEN_PRIVATE_KEY"},
		{name: "smtp without host", mutate: func(c *AppConfig) { c.Email.Provider = "smtp" }, wantErr: "EMAIL_HOST"},
		{name: "unknown email provider", mutate: func(c *AppConfig) { c.Email.Provider = "pigeon" }, wantErr: "EMAIL_PROVIDER"},
		{name: "bad log level", mutate: func(c *AppConfig) { c.Logging.Level = "loud" }, wantErr: "LOG_LEVEL"},
		{name: "redis without addr", mutate: func(c *AppConfig) { c.Redis = RedisConfig{Enabled: true} }, wantErr: "REDIS_ADDR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateConfig_CollectsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Host = ""
	cfg.Database.Name = ""
	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_HOST")
	assert.Contains(t, err.Error(), "DB_NAME")
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("CFG_TEST_INT", "42")
	t.Setenv("CFG_TEST_BAD_INT", "forty")
	t.Setenv("CFG_TEST_BOOL", "true")
	t.Setenv("CFG_TEST_DURATION", "90s")
	t.Setenv("CFG_TEST_SLICE", " a, b ,,c ")

	assert.Equal(t, 42, getEnvInt("CFG_TEST_INT", 1))
	assert.Equal(t, 1, getEnvInt("CFG_TEST_BAD_INT", 1))
	assert.True(t, getEnvBool("CFG_TEST_BOOL", false))
	assert.Equal(t, 90*time.Second, getEnvDuration("CFG_TEST_DURATION", time.Second))
	assert.Equal(t, []string{"a", "b", "c"}, getEnvStringSlice("CFG_TEST_SLICE", nil))
	assert.Equal(t, "fallback", getEnvString("CFG_TEST_UNSET", "fallback"))
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		assert.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), ".env")))
	})

	t.Run("does not override the environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("CFG_TEST_FILE_ONLY=from-file\nCFG_TEST_BOTH=from-file\n"), 0o600))
		t.Setenv("CFG_TEST_BOTH", "from-env")
		t.Setenv("CFG_TEST_FILE_ONLY", "")
		require.NoError(t, os.Unsetenv("CFG_TEST_FILE_ONLY"))

		require.NoError(t, loadEnvFile(path))
		assert.Equal(t, "from-file", os.Getenv("CFG_TEST_FILE_ONLY"))
		assert.Equal(t, "from-env", os.Getenv("CFG_TEST_BOTH"))
	})
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=n sslmode=disable TimeZone=UTC", d.DSN())
}
