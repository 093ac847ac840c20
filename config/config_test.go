package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(nil))
	require.NoError(t, err)

	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 4, cfg.DispatchWorkers)
	assert.Equal(t, 256, cfg.SessionBufferSize)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 10.0, cfg.WriteRatePerSec)
	assert.Equal(t, 20, cfg.WriteBurst)
	assert.False(t, cfg.ArchiveEnabled())
}

func TestFromLookup_Overrides(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"DATABASE_URL":         "postgres://localhost/livescore",
		"SERVER_PORT":          " 9000 ",
		"LOG_LEVEL":            "debug",
		"DISPATCH_WORKERS":     "16",
		"SESSION_BUFFER_SIZE":  "32",
		"ALLOWED_ORIGINS":      "https://a.example, ,https://b.example",
		"WRITE_RATE_PER_SEC":   "2.5",
		"WRITE_BURST":          "5",
		"R2_ACCOUNT_ID":        "acc",
		"R2_ACCESS_KEY_ID":     "key",
		"R2_SECRET_ACCESS_KEY": "secret",
		"R2_BUCKET_NAME":       "archive",
		"R2_PUBLIC_BASE_URL":   "https://cdn.example",
	}))
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/livescore", cfg.DatabaseURL)
	assert.Equal(t, 9000, cfg.ServerPort)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 16, cfg.DispatchWorkers)
	assert.Equal(t, 32, cfg.SessionBufferSize)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 2.5, cfg.WriteRatePerSec)
	assert.Equal(t, 5, cfg.WriteBurst)
	assert.True(t, cfg.ArchiveEnabled())
}

func TestFromLookup_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "port not a number", env: map[string]string{"SERVER_PORT": "http"}, wantErr: "invalid SERVER_PORT environment variable"},
		{name: "port out of range", env: map[string]string{"SERVER_PORT": "70000"}, wantErr: "SERVER_PORT must be between"},
		{name: "zero workers", env: map[string]string{"DISPATCH_WORKERS": "0"}, wantErr: "DISPATCH_WORKERS must be positive"},
		{name: "negative buffer", env: map[string]string{"SESSION_BUFFER_SIZE": "-1"}, wantErr: "SESSION_BUFFER_SIZE must be positive"},
		{name: "bad rate", env: map[string]string{"WRITE_RATE_PER_SEC": "fast"}, wantErr: "invalid WRITE_RATE_PER_SEC"},
		{name: "zero rate", env: map[string]string{"WRITE_RATE_PER_SEC": "0"}, wantErr: "invalid WRITE_RATE_PER_SEC"},
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "loud"}, wantErr: "invalid LOG_LEVEL"},
		{name: "partial archive", env: map[string]string{"R2_ACCOUNT_ID": "acc", "R2_BUCKET_NAME": "archive"}, wantErr: "R2 archive configuration is partial"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromLookup(lookupFrom(tt.env))
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
