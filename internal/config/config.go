// Package config loads service configuration from an optional YAML file with
// environment variable overrides. Environment always wins so deployments can
// keep secrets out of the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr      string `yaml:"addr"`
	JWTSecret string `yaml:"jwt_secret"`

	// Backend selects where user data lives: "sheets", "redis", "postgres"
	// or "s3".
	Backend string `yaml:"backend"`

	DatabaseURL   string `yaml:"database_url"`
	MigrationsDir string `yaml:"migrations_dir"`
	RedisURL      string `yaml:"redis_url"`

	GoogleClientID     string `yaml:"google_client_id"`
	GoogleClientSecret string `yaml:"google_client_secret"`
	GoogleRedirectURL  string `yaml:"google_redirect_url"`

	S3Endpoint  string `yaml:"s3_endpoint"`
	S3AccessKey string `yaml:"s3_access_key"`
	S3SecretKey string `yaml:"s3_secret_key"`
	S3Bucket    string `yaml:"s3_bucket"`
	S3UseSSL    bool   `yaml:"s3_use_ssl"`

	MeiliURL       string `yaml:"meili_url"`
	MeiliMasterKey string `yaml:"meili_master_key"`

	ArchiveDir string `yaml:"archive_dir"`

	CORSOrigin string        `yaml:"cors_origin"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
}

// Load reads the YAML file at path (skipped when empty or missing) and then
// applies environment overrides and defaults.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.Addr = override("DAYMARK_ADDR", cfg.Addr, ":8686")
	cfg.JWTSecret = override("DAYMARK_JWT_SECRET", cfg.JWTSecret, "daymark-dev-secret")
	cfg.Backend = override("DAYMARK_BACKEND", cfg.Backend, "redis")
	cfg.DatabaseURL = override("DATABASE_URL", cfg.DatabaseURL, "")
	cfg.MigrationsDir = override("DAYMARK_MIGRATIONS_DIR", cfg.MigrationsDir, "./db/migrations")
	cfg.RedisURL = override("REDIS_URL", cfg.RedisURL, "redis://localhost:6379/0")
	cfg.GoogleClientID = override("GOOGLE_CLIENT_ID", cfg.GoogleClientID, "")
	cfg.GoogleClientSecret = override("GOOGLE_CLIENT_SECRET", cfg.GoogleClientSecret, "")
	cfg.GoogleRedirectURL = override("GOOGLE_REDIRECT_URL", cfg.GoogleRedirectURL,
		"http://localhost:3000/auth/google/callback")
	cfg.S3Endpoint = override("S3_ENDPOINT", cfg.S3Endpoint, "")
	cfg.S3AccessKey = override("S3_ACCESS_KEY", cfg.S3AccessKey, "")
	cfg.S3SecretKey = override("S3_SECRET_KEY", cfg.S3SecretKey, "")
	cfg.S3Bucket = override("S3_BUCKET", cfg.S3Bucket, "daymark-data")
	cfg.MeiliURL = override("MEILI_URL", cfg.MeiliURL, "")
	cfg.MeiliMasterKey = override("MEILI_MASTER_KEY", cfg.MeiliMasterKey, "")
	cfg.ArchiveDir = override("DAYMARK_ARCHIVE_DIR", cfg.ArchiveDir, "./data/archive")
	cfg.CORSOrigin = override("DAYMARK_CORS_ORIGIN", cfg.CORSOrigin, "*")

	if v := os.Getenv("S3_USE_SSL"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.S3UseSSL = parsed
		}
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = time.Duration(getenvInt("DAYMARK_ACCESS_TTL_SECONDS", 900)) * time.Second
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = time.Duration(getenvInt("DAYMARK_REFRESH_TTL_SECONDS", 2592000)) * time.Second
	}

	return cfg, nil
}

func override(key, fileValue, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if fileValue != "" {
		return fileValue
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
