package config

import (
	"fmt"
	"strconv"
	"time"
)

// parseEnv overlays cfg with CIVIC_* variables.
func parseEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}

	str(&cfg.APIBaseURL, "CIVIC_API_BASE_URL", "VITE_API_BASE_URL")
	str(&cfg.DataDir, "CIVIC_DATA_DIR")
	str(&cfg.StoreBackend, "CIVIC_STORE_BACKEND")
	str(&cfg.RedisAddr, "CIVIC_REDIS_ADDR")
	str(&cfg.RedisNamespace, "CIVIC_REDIS_NAMESPACE")
	str(&cfg.DispatchMode, "CIVIC_DISPATCH_MODE")
	str(&cfg.UploadBackend, "CIVIC_UPLOAD_BACKEND")
	str(&cfg.LogBackend, "CIVIC_LOG_BACKEND")
	str(&cfg.LogLevel, "CIVIC_LOG_LEVEL")

	str(&cfg.S3.Region, "CIVIC_S3_REGION")
	str(&cfg.S3.Endpoint, "CIVIC_S3_ENDPOINT")
	str(&cfg.S3.AccessKey, "CIVIC_S3_ACCESS_KEY")
	str(&cfg.S3.SecretKey, "CIVIC_S3_SECRET_KEY")
	str(&cfg.S3.Bucket, "CIVIC_S3_BUCKET")

	str(&cfg.Minio.Endpoint, "CIVIC_MINIO_ENDPOINT")
	str(&cfg.Minio.AccessKey, "CIVIC_MINIO_ACCESS_KEY")
	str(&cfg.Minio.SecretKey, "CIVIC_MINIO_SECRET_KEY")
	str(&cfg.Minio.Bucket, "CIVIC_MINIO_BUCKET")

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"CIVIC_MOCK_LATENCY", &cfg.MockLatency},
		{"CIVIC_REQUEST_TIMEOUT", &cfg.RequestTimeout},
		{"CIVIC_SUBSCRIBE_BACKOFF_BASE", &cfg.SubscribeBackoffBase},
		{"CIVIC_SUBSCRIBE_BACKOFF_MAX", &cfg.SubscribeBackoffMax},
	}
	for _, d := range durations {
		v, ok := lookup(d.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, d.key, v)
		}
		*d.dst = parsed
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"CIVIC_MOCK_LIFECYCLE", &cfg.MockLifecycle},
		{"CIVIC_ENFORCE_ROLES", &cfg.EnforceRoles},
		{"CIVIC_MINIO_USE_SSL", &cfg.Minio.UseSSL},
	}
	for _, b := range bools {
		v, ok := lookup(b.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, b.key, v)
		}
		*b.dst = parsed
	}

	return nil
}
