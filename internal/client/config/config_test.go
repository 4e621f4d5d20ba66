package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://localhost:5000/api", c.APIBaseURL)
	assert.Equal(t, "sqlite", c.StoreBackend)
	assert.Equal(t, "mock-first", c.DispatchMode)
	assert.Equal(t, 300*time.Millisecond, c.MockLatency)
	assert.Equal(t, 15*time.Second, c.RequestTimeout)
	assert.Equal(t, "http", c.UploadBackend)
	assert.NoError(t, c.Validate())
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_JSONFile(t *testing.T) {
	path := writeFile(t, "conf.json", `{
		"api_base_url": "https://api.example.org",
		"mock_latency": "50ms",
		"request_timeout": 2000000000,
		"mock_lifecycle": true,
		"s3": {"bucket": "photos"}
	}`)

	cfg, err := load([]string{"-c", path}, noEnv)
	require.NoError(t, err)

	want := defaults()
	want.APIBaseURL = "https://api.example.org"
	want.MockLatency = 50 * time.Millisecond
	want.RequestTimeout = 2 * time.Second
	want.MockLifecycle = true
	want.S3.Bucket = "photos"
	assert.Empty(t, cmp.Diff(want, cfg))
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeFile(t, "conf.yaml", `
store_backend: redis
redis_addr: 10.0.0.1:6379
enforce_roles: false
minio:
  endpoint: localhost:9000
  use_ssl: true
`)

	cfg, err := load([]string{"-config=" + path}, noEnv)
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.StoreBackend)
	assert.Equal(t, "10.0.0.1:6379", cfg.RedisAddr)
	assert.False(t, cfg.EnforceRoles)
	assert.Equal(t, "localhost:9000", cfg.Minio.Endpoint)
	assert.True(t, cfg.Minio.UseSSL)
	assert.Equal(t, "civic-issues", cfg.Minio.Bucket)
}

func TestLoad_FileErrors(t *testing.T) {
	_, err := load([]string{"-c", filepath.Join(t.TempDir(), "missing.json")}, noEnv)
	require.Error(t, err)

	bad := writeFile(t, "bad.json", `{"mock_latency": "soon"}`)
	_, err = load([]string{"-c", bad}, noEnv)
	require.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "conf.json", `{"api_base_url": "https://file.example.org"}`)

	cfg, err := load([]string{"-c", path}, envMap(map[string]string{
		"CIVIC_API_BASE_URL":  "https://env.example.org",
		"CIVIC_MOCK_LATENCY":  "1s",
		"CIVIC_ENFORCE_ROLES": "false",
	}))
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.org", cfg.APIBaseURL)
	assert.Equal(t, time.Second, cfg.MockLatency)
	assert.False(t, cfg.EnforceRoles)
}

func TestLoad_ViteAlias(t *testing.T) {
	cfg, err := load(nil, envMap(map[string]string{"VITE_API_BASE_URL": "https://vite.example.org"}))
	require.NoError(t, err)
	assert.Equal(t, "https://vite.example.org", cfg.APIBaseURL)

	cfg, err = load(nil, envMap(map[string]string{
		"VITE_API_BASE_URL":  "https://vite.example.org",
		"CIVIC_API_BASE_URL": "https://civic.example.org",
	}))
	require.NoError(t, err)
	assert.Equal(t, "https://civic.example.org", cfg.APIBaseURL)
}

func TestLoad_BadEnv(t *testing.T) {
	_, err := load(nil, envMap(map[string]string{"CIVIC_REQUEST_TIMEOUT": "forever"}))
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = load(nil, envMap(map[string]string{"CIVIC_MOCK_LIFECYCLE": "maybe"}))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_ReadsDotEnvThenFlags(t *testing.T) {
	for _, k := range []string{"CIVIC_API_BASE_URL", "CIVIC_DISPATCH_MODE"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("CIVIC_API_BASE_URL=https://dotenv.example.org\nCIVIC_DISPATCH_MODE=mock-only\n"), 0o600))
	t.Chdir(dir)

	cfg, err := Load([]string{"-m", "network-only"})
	require.NoError(t, err)
	assert.Equal(t, "https://dotenv.example.org", cfg.APIBaseURL)
	assert.Equal(t, "network-only", cfg.DispatchMode)
}

func TestLoad_FlagsWin(t *testing.T) {
	cfg, err := load(
		[]string{"-a", "https://flag.example.org", "-m", "network-only", "-t", "3s", "-mock-lifecycle"},
		envMap(map[string]string{"CIVIC_API_BASE_URL": "https://env.example.org"}),
	)
	require.NoError(t, err)

	assert.Equal(t, "https://flag.example.org", cfg.APIBaseURL)
	assert.Equal(t, "network-only", cfg.DispatchMode)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.MockLifecycle)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty url", func(c *Config) { c.APIBaseURL = "" }},
		{"store backend", func(c *Config) { c.StoreBackend = "mongo" }},
		{"upload backend", func(c *Config) { c.UploadBackend = "ftp" }},
		{"dispatch mode", func(c *Config) { c.DispatchMode = "sometimes" }},
		{"negative latency", func(c *Config) { c.MockLatency = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaults()
			tt.mutate(c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}
