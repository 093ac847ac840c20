package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Empty means the in-memory store.
	DatabaseURL string
	ServerPort  int
	LogLevel    slog.Level

	DispatchWorkers   int
	SessionBufferSize int
	AllowedOrigins    []string
	WriteRatePerSec   float64
	WriteBurst        int

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// Load reads the configuration from the environment, loading a .env file
// first when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup, which has the signature of
// os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := &Config{
		DatabaseURL:       get("DATABASE_URL", ""),
		R2AccountID:       get("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     get("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: get("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      get("R2_BUCKET_NAME", ""),
		R2PublicBaseURL:   get("R2_PUBLIC_BASE_URL", ""),
	}

	var err error
	if cfg.ServerPort, err = positiveInt("SERVER_PORT", get("SERVER_PORT", "8080")); err != nil {
		return nil, err
	}
	if cfg.ServerPort > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", cfg.ServerPort)
	}
	if cfg.DispatchWorkers, err = positiveInt("DISPATCH_WORKERS", get("DISPATCH_WORKERS", "4")); err != nil {
		return nil, err
	}
	if cfg.SessionBufferSize, err = positiveInt("SESSION_BUFFER_SIZE", get("SESSION_BUFFER_SIZE", "256")); err != nil {
		return nil, err
	}
	if cfg.WriteBurst, err = positiveInt("WRITE_BURST", get("WRITE_BURST", "20")); err != nil {
		return nil, err
	}

	rateStr := get("WRITE_RATE_PER_SEC", "10")
	cfg.WriteRatePerSec, err = strconv.ParseFloat(rateStr, 64)
	if err != nil || cfg.WriteRatePerSec <= 0 {
		return nil, fmt.Errorf("invalid WRITE_RATE_PER_SEC %q: must be a positive number", rateStr)
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(get("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	for _, o := range strings.Split(get("ALLOWED_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	r2 := []string{cfg.R2AccountID, cfg.R2AccessKeyID, cfg.R2SecretAccessKey, cfg.R2BucketName, cfg.R2PublicBaseURL}
	set := 0
	for _, v := range r2 {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != len(r2) {
		return nil, fmt.Errorf("R2 archive configuration is partial: set all R2_* variables or none")
	}

	return cfg, nil
}

// ArchiveEnabled reports whether finished matches are uploaded to R2.
func (c *Config) ArchiveEnabled() bool {
	return c.R2AccountID != ""
}

func positiveInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, n)
	}
	return n, nil
}
