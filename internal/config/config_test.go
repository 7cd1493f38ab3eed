package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, cfg.Database.DSN, cfg.Reporting.DSN)
	assert.Equal(t, 10, cfg.Interview.QuestionCount)
	assert.Equal(t, 3, cfg.Interview.FetchAttempts)
	assert.Equal(t, time.Second, cfg.Interview.FetchBackoff)
	assert.Equal(t, 30*time.Second, cfg.Logins.DuplicateWindow)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, slog.LevelInfo, cfg.Log.Level)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("REPORTING_DSN", "postgres://replica/db")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("INTERVIEW_FETCH_BACKOFF", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres://replica/db", cfg.Reporting.DSN)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "g-key", cfg.LLM.Gemini.APIKey)
	assert.Equal(t, slog.LevelDebug, cfg.Log.Level)
	assert.Equal(t, 250*time.Millisecond, cfg.Interview.FetchBackoff)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "missing dsn", mutate: func(c *Config) { c.Database.DSN = "" }, wantErr: true},
		{name: "missing jwt secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: true},
		{name: "zero questions", mutate: func(c *Config) { c.Interview.QuestionCount = 0 }, wantErr: true},
		{name: "zero fetch attempts", mutate: func(c *Config) { c.Interview.FetchAttempts = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("AUTH_JWT_SECRET", "secret")
			cfg, err := Load()
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
