package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries every knob the application reads from the environment.
// It is built once in main and passed into component constructors; no
// component reads the environment at call time.
type Config struct {
	DatabaseURL      string
	HTTPPort         string
	StorageRoot      string
	DailyUploadLimit int
	MaxUploadBytes   int64
	JWTSecret        string
	JWTTTL           time.Duration
}

const (
	defaultHTTPPort       = "8080"
	defaultStorageRoot    = "./storage"
	defaultDailyUploads   = 20
	defaultMaxUploadBytes = 500 << 20 // 500MB
	defaultJWTTTL         = 24 * time.Hour
)

func FromEnv() (Config, error) {
	cfg := Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		HTTPPort:         envOr("HTTP_PORT", defaultHTTPPort),
		StorageRoot:      envOr("STORAGE_ROOT", defaultStorageRoot),
		DailyUploadLimit: defaultDailyUploads,
		MaxUploadBytes:   defaultMaxUploadBytes,
		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTTTL:           defaultJWTTTL,
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is empty")
	}
	if s := os.Getenv("DAILY_UPLOAD_LIMIT"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("DAILY_UPLOAD_LIMIT invalid: %q", s)
		}
		cfg.DailyUploadLimit = n
	}
	if s := os.Getenv("MAX_UPLOAD_BYTES"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("MAX_UPLOAD_BYTES invalid: %q", s)
		}
		cfg.MaxUploadBytes = n
	}
	if s := os.Getenv("JWT_EXPIRES_IN"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return Config{}, fmt.Errorf("JWT_EXPIRES_IN invalid: %q", s)
		}
		cfg.JWTTTL = d
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
