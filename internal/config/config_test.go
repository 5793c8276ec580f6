package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ModeLocal, cfg.Mode)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "none", cfg.AI.Provider)
	assert.False(t, cfg.AI.Enabled())
	assert.Equal(t, 5, cfg.Pipeline.HistoryDepth)
	assert.False(t, cfg.Pipeline.AdaptiveDepth)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
mode: gcp
storage:
  backend: Firestore
gcp:
  project: demo-project
ai:
  provider: gemini
  api_key: file-key
pipeline:
  history_depth: 8
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("CHATFLOW_PIPELINE_HISTORY_DEPTH", "3")
	t.Setenv("CHATFLOW_AI_API_KEY", "env-key")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ModeGCP, cfg.Mode)
	assert.Equal(t, "firestore", cfg.Storage.Backend)
	assert.Equal(t, "demo-project", cfg.GCP.Project)
	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.True(t, cfg.AI.Enabled())
	assert.Equal(t, "env-key", cfg.AI.APIKey)
	assert.Equal(t, 3, cfg.Pipeline.HistoryDepth)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		Mode:     ModeLocal,
		Port:     "8080",
		Log:      LogConfig{Level: "info"},
		Storage:  StorageConfig{Backend: "memory"},
		AI:       AIConfig{Provider: "none", Temperature: 0.2, Burst: 1},
		Pipeline: PipelineConfig{HistoryDepth: 5},
	}
}

func TestValidate_Valid(t *testing.T) {
	assert.Empty(t, Validate(validConfig()))
}

func TestValidate_Issues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"bad mode", func(c *Config) { c.Mode = "cloud" }, "mode"},
		{"bad port", func(c *Config) { c.Port = "http" }, "port"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad backend", func(c *Config) { c.Storage.Backend = "redis" }, "storage.backend"},
		{"firestore without project", func(c *Config) { c.Storage.Backend = "firestore" }, "gcp.project"},
		{"vertex without project", func(c *Config) { c.AI.Provider = "vertex" }, "gcp.project"},
		{"gemini without key", func(c *Config) { c.AI.Provider = "gemini" }, "ai.api_key"},
		{"openai without key", func(c *Config) { c.AI.Provider = "openai" }, "ai.openai_api_key"},
		{"unknown provider", func(c *Config) { c.AI.Provider = "claude" }, "ai.provider"},
		{"fallback equals primary", func(c *Config) {
			c.AI.Provider = "openai"
			c.AI.OpenAIAPIKey = "k"
			c.AI.FallbackProvider = "openai"
		}, "ai.fallback_provider"},
		{"negative rate", func(c *Config) { c.AI.RequestsPerSecond = -1 }, "ai.requests_per_second"},
		{"zero burst", func(c *Config) {
			c.AI.RequestsPerSecond = 2
			c.AI.Burst = 0
		}, "ai.burst"},
		{"depth too large", func(c *Config) { c.Pipeline.HistoryDepth = 100 }, "pipeline.history_depth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			issues := Validate(cfg)
			require.NotEmpty(t, issues)

			var paths []string
			for _, is := range issues {
				paths = append(paths, is.Path)
			}
			assert.Contains(t, paths, tt.path)
		})
	}
}
