package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime settings for the civicsync CLI.
type Config struct {
	APIBaseURL string
	DataDir    string

	// StoreBackend selects the metadata slot: "sqlite" or "redis".
	StoreBackend   string
	RedisAddr      string
	RedisNamespace string

	DispatchMode   string
	MockLatency    time.Duration
	MockLifecycle  bool
	RequestTimeout time.Duration

	// UploadBackend selects the image uploader: "http", "s3" or "minio".
	UploadBackend string
	S3            S3
	Minio         Minio

	SubscribeBackoffBase time.Duration
	SubscribeBackoffMax  time.Duration

	EnforceRoles bool

	LogBackend string
	LogLevel   string
}

type S3 struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

type Minio struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

var ErrInvalidConfig = errors.New("invalid config")

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://localhost:5000/api"
	c.DataDir = ".civicsync"
	c.StoreBackend = "sqlite"
	c.RedisAddr = "127.0.0.1:6379"
	c.RedisNamespace = "civicsync"
	c.DispatchMode = "mock-first"
	c.MockLatency = 300 * time.Millisecond
	c.MockLifecycle = false
	c.RequestTimeout = 15 * time.Second
	c.UploadBackend = "http"
	c.S3 = S3{Region: "us-east-1", Bucket: "civic-issues"}
	c.Minio = Minio{Bucket: "civic-issues"}
	c.SubscribeBackoffBase = 500 * time.Millisecond
	c.SubscribeBackoffMax = 30 * time.Second
	c.EnforceRoles = true
	c.LogBackend = "slog"
	c.LogLevel = "info"
}

// Load builds a Config from defaults, the config file, the environment
// (after .env) and args, in that order.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return load(args, os.LookupEnv)
}

func load(args []string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, lookup); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("%w: api base url is empty", ErrInvalidConfig)
	}
	switch c.StoreBackend {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("%w: store backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	switch c.UploadBackend {
	case "http", "s3", "minio":
	default:
		return fmt.Errorf("%w: upload backend %q", ErrInvalidConfig, c.UploadBackend)
	}
	switch c.DispatchMode {
	case "mock-first", "network-only", "mock-only":
	default:
		return fmt.Errorf("%w: dispatch mode %q", ErrInvalidConfig, c.DispatchMode)
	}
	if c.MockLatency < 0 || c.RequestTimeout < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalidConfig)
	}
	return nil
}
