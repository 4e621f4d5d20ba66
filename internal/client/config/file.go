package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sheharfix/civicsync/internal/flagx"
	"github.com/sheharfix/civicsync/internal/timex"
)

// FileConfig is the on-disk shape of the config file. Only keys present in
// the file override earlier values.
type FileConfig struct {
	APIBaseURL           string          `json:"api_base_url" yaml:"api_base_url"`
	DataDir              string          `json:"data_dir" yaml:"data_dir"`
	StoreBackend         string          `json:"store_backend" yaml:"store_backend"`
	RedisAddr            string          `json:"redis_addr" yaml:"redis_addr"`
	RedisNamespace       string          `json:"redis_namespace" yaml:"redis_namespace"`
	DispatchMode         string          `json:"dispatch_mode" yaml:"dispatch_mode"`
	MockLatency          *timex.Duration `json:"mock_latency" yaml:"mock_latency"`
	MockLifecycle        *bool           `json:"mock_lifecycle" yaml:"mock_lifecycle"`
	RequestTimeout       *timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	UploadBackend        string          `json:"upload_backend" yaml:"upload_backend"`
	S3                   *S3File         `json:"s3" yaml:"s3"`
	Minio                *MinioFile      `json:"minio" yaml:"minio"`
	SubscribeBackoffBase *timex.Duration `json:"subscribe_backoff_base" yaml:"subscribe_backoff_base"`
	SubscribeBackoffMax  *timex.Duration `json:"subscribe_backoff_max" yaml:"subscribe_backoff_max"`
	EnforceRoles         *bool           `json:"enforce_roles" yaml:"enforce_roles"`
	LogBackend           string          `json:"log_backend" yaml:"log_backend"`
	LogLevel             string          `json:"log_level" yaml:"log_level"`
}

type S3File struct {
	Region    string `json:"region" yaml:"region"`
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
	Bucket    string `json:"bucket" yaml:"bucket"`
}

type MinioFile struct {
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
	Bucket    string `json:"bucket" yaml:"bucket"`
	UseSSL    *bool  `json:"use_ssl" yaml:"use_ssl"`
}

// parseFile overlays cfg with the file named by -c/-config, if any.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc *FileConfig) apply(cfg *Config) {
	setString(&cfg.APIBaseURL, fc.APIBaseURL)
	setString(&cfg.DataDir, fc.DataDir)
	setString(&cfg.StoreBackend, fc.StoreBackend)
	setString(&cfg.RedisAddr, fc.RedisAddr)
	setString(&cfg.RedisNamespace, fc.RedisNamespace)
	setString(&cfg.DispatchMode, fc.DispatchMode)
	setString(&cfg.UploadBackend, fc.UploadBackend)
	setString(&cfg.LogBackend, fc.LogBackend)
	setString(&cfg.LogLevel, fc.LogLevel)

	if fc.MockLatency != nil {
		cfg.MockLatency = fc.MockLatency.Duration
	}
	if fc.RequestTimeout != nil {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.SubscribeBackoffBase != nil {
		cfg.SubscribeBackoffBase = fc.SubscribeBackoffBase.Duration
	}
	if fc.SubscribeBackoffMax != nil {
		cfg.SubscribeBackoffMax = fc.SubscribeBackoffMax.Duration
	}
	if fc.MockLifecycle != nil {
		cfg.MockLifecycle = *fc.MockLifecycle
	}
	if fc.EnforceRoles != nil {
		cfg.EnforceRoles = *fc.EnforceRoles
	}

	if s := fc.S3; s != nil {
		setString(&cfg.S3.Region, s.Region)
		setString(&cfg.S3.Endpoint, s.Endpoint)
		setString(&cfg.S3.AccessKey, s.AccessKey)
		setString(&cfg.S3.SecretKey, s.SecretKey)
		setString(&cfg.S3.Bucket, s.Bucket)
	}
	if m := fc.Minio; m != nil {
		setString(&cfg.Minio.Endpoint, m.Endpoint)
		setString(&cfg.Minio.AccessKey, m.AccessKey)
		setString(&cfg.Minio.SecretKey, m.SecretKey)
		setString(&cfg.Minio.Bucket, m.Bucket)
		if m.UseSSL != nil {
			cfg.Minio.UseSSL = *m.UseSSL
		}
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
