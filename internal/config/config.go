package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	CORS struct {
		Origin string `yaml:"origin"`
	} `yaml:"cors"`

	Storage struct {
		Type           string `yaml:"type"`            // backblaze, cloudflare_r2, local
		Bucket         string `yaml:"bucket"`          // bucket name (part of public URLs)
		BucketID       string `yaml:"bucket_id"`       // Backblaze bucket id
		KeyID          string `yaml:"key_id"`          // Backblaze application key id
		ApplicationKey string `yaml:"application_key"` // Backblaze application key
		BaseURL        string `yaml:"base_url"`        // Public URL base (overrides provider default)
		Endpoint       string `yaml:"endpoint"`        // R2 / custom S3 endpoint
		Region         string `yaml:"region"`          // S3 region
		AccessKey      string `yaml:"access_key"`      // S3/R2 access key
		SecretKey      string `yaml:"secret_key"`      // S3/R2 secret key
		BasePath       string `yaml:"base_path"`       // local backend directory
		TimeoutSeconds int    `yaml:"timeout_seconds"` // per-call timeout, default 30
	} `yaml:"storage"`

	Upload struct {
		MaxSize int64 `yaml:"max_size"` // max file size in bytes
	} `yaml:"upload"`

	Reconcile ReconcileConfig `yaml:"reconcile"`
}

// ReconcileConfig controls the background orphan sweep over object storage.
type ReconcileConfig struct {
	Enabled         bool `yaml:"enabled"`
	IntervalMinutes int  `yaml:"interval_minutes"`
	GraceMinutes    int  `yaml:"grace_minutes"`
	DeleteOrphans   bool `yaml:"delete_orphans"`
}

var AppConfig *Config

// StorageTimeout returns the per-call object storage timeout.
func (c *Config) StorageTimeout() time.Duration {
	if c.Storage.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Storage.TimeoutSeconds) * time.Second
}

// LoadConfig populates AppConfig from config.yaml, or from environment
// variables when DATABASE_URL is set (test/deploy mode).
func LoadConfig() {
	var cfg Config

	dbURL := os.Getenv("DATABASE_URL")

	if dbURL == "" {
		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file at %s: %v", configPath, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}

		applyDefaults(&cfg)
		AppConfig = &cfg
		return
	}

	cfg.Database.DSN = dbURL
	cfg.Server.Env = os.Getenv("SERVER_ENV")
	cfg.Server.Port, _ = strconv.Atoi(os.Getenv("SERVER_PORT"))

	cfg.Storage.Type = envOr("STORAGE_TYPE", "local")
	cfg.Storage.Bucket = os.Getenv("STORAGE_BUCKET")
	cfg.Storage.BucketID = os.Getenv("B2_BUCKET_ID")
	cfg.Storage.KeyID = os.Getenv("B2_KEY_ID")
	cfg.Storage.ApplicationKey = os.Getenv("B2_APPLICATION_KEY")
	cfg.Storage.BaseURL = os.Getenv("STORAGE_BASE_URL")
	cfg.Storage.BasePath = envOr("STORAGE_BASE_PATH", "./uploads")
	cfg.CORS.Origin = os.Getenv("CORS_ORIGIN")

	applyDefaults(&cfg)
	AppConfig = &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Storage.TimeoutSeconds == 0 {
		cfg.Storage.TimeoutSeconds = 30
	}
	if cfg.Upload.MaxSize == 0 {
		cfg.Upload.MaxSize = 50 * 1024 * 1024 // 50MB
	}
	if cfg.Reconcile.IntervalMinutes == 0 {
		cfg.Reconcile.IntervalMinutes = 60
	}
	if cfg.Reconcile.GraceMinutes == 0 {
		cfg.Reconcile.GraceMinutes = 30
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetConfig returns the loaded configuration, loading it on first use.
func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
