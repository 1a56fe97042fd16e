package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "")
	t.Setenv("SWEEP_AT", "")
	t.Setenv("POSTGRES_DSN", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "hotel-booking-service", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, time.UTC, cfg.App.Location())
	assert.Equal(t, "02:00", cfg.Sweeper.At)
	assert.True(t, cfg.Sweeper.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Sweeper.LockTTL())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("SWEEP_AT", "23:45")
	t.Setenv("SWEEP_RUN_ON_START", "true")
	t.Setenv("POSTGRES_MAX_CONNS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.True(t, cfg.Sweeper.RunOnStart)
	assert.EqualValues(t, 10, cfg.Postgres.MaxConns)

	hour, minute, err := cfg.Sweeper.Clock()
	require.NoError(t, err)
	assert.Equal(t, 23, hour)
	assert.Equal(t, 45, minute)
}

func TestLoad_RejectsInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")

	_, err := Load()
	assert.ErrorContains(t, err, "REDIS_DB")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			App:     AppConfig{Timezone: "UTC"},
			Auth:    AuthConfig{JWTSecret: "s", AccessTokenTTLMinutes: 60},
			Sweeper: SweeperConfig{At: "02:00", LockTTLSeconds: 60},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad sweep time", func(c *Config) { c.Sweeper.At = "25:00" }, "SWEEP_AT"},
		{"bad sweep format", func(c *Config) { c.Sweeper.At = "2am" }, "SWEEP_AT"},
		{"unknown zone", func(c *Config) { c.App.Timezone = "Mars/Olympus" }, "APP_TIMEZONE"},
		{"zero lock ttl", func(c *Config) { c.Sweeper.LockTTLSeconds = 0 }, "SWEEP_LOCK_TTL_SECONDS"},
		{"empty secret", func(c *Config) { c.Auth.JWTSecret = " " }, "AUTH_JWT_SECRET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
