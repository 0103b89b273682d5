// AuraPrep | 2026
// config_test.go

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App: AppConfig{Environment: "development"},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  1,
			WriteTimeout: 1,
		},
		Database: DatabaseConfig{URL: "postgres://localhost/test"},
		Redis:    RedisConfig{URL: "redis://localhost:6379"},
		JWT: JWTConfig{
			AccessSecret:     "test-access-secret-0123456789abcdef",
			RefreshSecret:    "test-refresh-secret-0123456789abcdef",
			RefreshTokenDays: 7,
		},
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	require.NoError(t, validate(validConfig()))
}

func TestValidateRequiresDistinctSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.RefreshSecret = cfg.JWT.AccessSecret
	assert.Error(t, validate(cfg))
}

func TestValidateRejectsShortSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.AccessSecret = "too short"
	assert.Error(t, validate(cfg))
}

func TestValidateRejectsWildcardOriginWithCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.CORS.AllowCredentials = true
	cfg.CORS.AllowedOrigins = []string{"*"}
	assert.Error(t, validate(cfg))
}

func TestValidateRejectsNonPositiveRefreshDays(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.RefreshTokenDays = 0
	assert.Error(t, validate(cfg))
}

func TestServerAddress(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 9090}
	assert.Equal(t, "127.0.0.1:9090", s.Address())
}

func TestEnvKeyReplacer(t *testing.T) {
	assert.Equal(t, "jwt.access_secret", envKeyReplacer("JWT_ACCESS_SECRET"))
	assert.Equal(t, "database.url", envKeyReplacer("DATABASE_URL"))
	assert.Empty(t, envKeyReplacer("PATH"))
}
