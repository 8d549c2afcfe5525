package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, "sqlite", c.StoreBackend)
	assert.Equal(t, "drive", c.ArchiveBackend)
	assert.Equal(t, "ContentIQ_Archive", c.ArchiveFolder)
	assert.Equal(t, "CIQ_LOG_", c.RecordPrefix)
	assert.Equal(t, 50, c.ListPageSize)
	assert.Equal(t, 50, c.HistoryLimit)
	assert.Equal(t, 2*time.Minute, c.RequestTimeout)
	require.NoError(t, c.Validate())
}

func TestLoad_NoSources(t *testing.T) {
	cfg, err := Load(nil, envMap(nil), "")
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(defaults(), cfg))
	assert.True(t, cfg.UseSimulatedAuth())
}

func TestLoad_Env(t *testing.T) {
	cfg, err := Load(nil, envMap(map[string]string{
		"CIQ_DATA_DIR":         "/tmp/ciq",
		"CIQ_STORE_BACKEND":    "badger",
		"CIQ_LIST_PAGE_SIZE":   "20",
		"CIQ_REMOTE_RPS":       "2.5",
		"CIQ_SIMULATE":         "true",
		"CIQ_REQUEST_TIMEOUT":  "45s",
		"GEMINI_API_KEY":       "gem-key",
		"GOOGLE_CLIENT_ID":     "cid",
		"GOOGLE_CLIENT_SECRET": "csecret",
	}), "")
	require.NoError(t, err)

	want := defaults()
	want.DataDir = "/tmp/ciq"
	want.StoreBackend = "badger"
	want.ListPageSize = 20
	want.RemoteRPS = 2.5
	want.Simulate = true
	want.RequestTimeout = 45 * time.Second
	want.AnalysisAPIKey = "gem-key"
	want.GoogleClientID = "cid"
	want.GoogleClientSecret = "csecret"

	assert.Empty(t, cmp.Diff(want, cfg))
	assert.True(t, cfg.UseSimulatedAuth())
}

func TestLoad_SearchGroundingCanBeDisabled(t *testing.T) {
	cfg, err := Load(nil, envMap(map[string]string{"CIQ_SEARCH_GROUNDING": "false"}), "")
	require.NoError(t, err)
	assert.False(t, cfg.SearchGrounding)

	path := writeTempJSON(t, map[string]any{"search_grounding": true, "history_limit": 20})
	cfg, err = Load([]string{"-c", path}, envMap(map[string]string{"CIQ_SEARCH_GROUNDING": "false"}), "")
	require.NoError(t, err)
	assert.True(t, cfg.SearchGrounding)
	assert.Equal(t, 20, cfg.HistoryLimit)

	path = writeTempJSON(t, map[string]any{"history_limit": 500})
	_, err = Load([]string{"-c", path}, envMap(nil), "")
	require.Error(t, err)
}

func TestLoad_DotEnvLosesToProcessEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("GEMINI_API_KEY=from-file\nGOOGLE_CLIENT_ID=file-client\n"), 0o600))

	cfg, err := Load(nil, envMap(map[string]string{"GEMINI_API_KEY": "from-env"}), envFile)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.AnalysisAPIKey)
	assert.Equal(t, "file-client", cfg.GoogleClientID)
	assert.False(t, cfg.UseSimulatedAuth())
}

func TestLoad_MissingDotEnvIsFine(t *testing.T) {
	_, err := Load(nil, envMap(nil), filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}

func TestLoad_BadEnvValue(t *testing.T) {
	_, err := Load(nil, envMap(map[string]string{"CIQ_SYNC_WORKERS": "many"}), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CIQ_SYNC_WORKERS")
}

func TestLoad_JSONThenFlags(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"data_dir":        "/srv/ciq",
		"archive_backend": "s3",
		"s3_bucket":       "ciq-archive",
		"request_timeout": "90s",
		"log_level":       "debug",
		"simulate":        true,
	})

	args := []string{"-c", path, "-log-level", "warn", "-store=badger", "history"}
	cfg, err := Load(args, envMap(map[string]string{"CIQ_DATA_DIR": "/from/env"}), "")
	require.NoError(t, err)

	want := defaults()
	want.DataDir = "/srv/ciq"
	want.ArchiveBackend = "s3"
	want.S3Bucket = "ciq-archive"
	want.RequestTimeout = 90 * time.Second
	want.LogLevel = "warn"
	want.StoreBackend = "badger"
	want.Simulate = true

	assert.Empty(t, cmp.Diff(want, cfg))
}

func TestLoad_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	_, err := Load([]string{"-config", path}, envMap(nil), "")
	require.Error(t, err)

	_, err = Load([]string{"-c", filepath.Join(t.TempDir(), "missing.json")}, envMap(nil), "")
	require.Error(t, err)
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "all flags",
			args:   []string{"-d", "/data", "-archive", "s3", "-simulate", "-metrics", "127.0.0.1:9102", "-timeout", "30s", "-model", "gemini-pro"},
			mutate: func(c *Config) { c.DataDir = "/data"; c.ArchiveBackend = "s3"; c.Simulate = true; c.MetricsAddr = "127.0.0.1:9102"; c.RequestTimeout = 30 * time.Second; c.AnalysisModel = "gemini-pro" },
		},
		{
			name:   "unknown flags ignored",
			args:   []string{"-x", "1", "--verbose", "-log-format=json"},
			mutate: func(c *Config) { c.LogFormat = "json" },
		},
		{
			name:    "bad duration",
			args:    []string{"-timeout", "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			err := parseFlags(cfg, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			want := defaults()
			tt.mutate(want)
			assert.Empty(t, cmp.Diff(want, cfg))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown store", func(c *Config) { c.StoreBackend = "redis" }},
		{"s3 without bucket", func(c *Config) { c.ArchiveBackend = "s3" }},
		{"zero page size", func(c *Config) { c.ListPageSize = 0 }},
		{"bad base url", func(c *Config) { c.AnalysisBaseURL = "not a url" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad metrics addr", func(c *Config) { c.MetricsAddr = "nope" }},
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"history above retention bound", func(c *Config) { c.HistoryLimit = 51 }},
		{"bad search url", func(c *Config) { c.SearchBaseURL = "::" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaults()
			tt.mutate(c)
			require.Error(t, c.Validate())
		})
	}
}
