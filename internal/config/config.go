package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

type Config struct {
	Mode Mode   `mapstructure:"mode"`
	Port string `mapstructure:"port"`

	Log      LogConfig      `mapstructure:"log"`
	Storage  StorageConfig  `mapstructure:"storage"`
	GCP      GCPConfig      `mapstructure:"gcp"`
	AI       AIConfig       `mapstructure:"ai"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type StorageConfig struct {
	Backend    string `mapstructure:"backend"` // "memory", "sqlite" or "firestore"
	SQLitePath string `mapstructure:"sqlite_path"`
}

type GCPConfig struct {
	Project  string `mapstructure:"project"`
	Location string `mapstructure:"location"`
}

type AIConfig struct {
	Provider         string  `mapstructure:"provider"` // "gemini", "vertex", "openai" or "none"
	FallbackProvider string  `mapstructure:"fallback_provider"`
	Model            string  `mapstructure:"model"`
	APIKey           string  `mapstructure:"api_key"`
	Temperature      float64 `mapstructure:"temperature"`

	OpenAIAPIKey string `mapstructure:"openai_api_key"`
	OpenAIModel  string `mapstructure:"openai_model"`

	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// Enabled reports whether an AI provider is configured.
func (c AIConfig) Enabled() bool {
	return c.Provider != "" && c.Provider != "none"
}

type PipelineConfig struct {
	HistoryDepth  int  `mapstructure:"history_depth"`
	AdaptiveDepth bool `mapstructure:"adaptive_depth"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", string(ModeLocal))
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.sqlite_path", "chatflow.db")
	v.SetDefault("gcp.project", "")
	v.SetDefault("gcp.location", "us-central1")
	v.SetDefault("ai.provider", "none")
	v.SetDefault("ai.fallback_provider", "")
	v.SetDefault("ai.model", "gemini-2.5-flash")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.temperature", 0.2)
	v.SetDefault("ai.openai_api_key", "")
	v.SetDefault("ai.openai_model", "gpt-4o-mini")
	v.SetDefault("ai.requests_per_second", 0.0)
	v.SetDefault("ai.burst", 1)
	v.SetDefault("pipeline.history_depth", 5)
	v.SetDefault("pipeline.adaptive_depth", false)
}

// Load reads defaults, then the optional YAML file at path, then CHATFLOW_*
// environment variables (e.g. CHATFLOW_STORAGE_BACKEND). A missing file is
// not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CHATFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Provider keys are commonly exported under their vendor names.
	_ = v.BindEnv("ai.api_key", "CHATFLOW_AI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("ai.openai_api_key", "CHATFLOW_AI_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("gcp.project", "CHATFLOW_GCP_PROJECT", "GOOGLE_CLOUD_PROJECT")
	_ = v.BindEnv("port", "CHATFLOW_PORT", "PORT")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.AI.Provider = strings.ToLower(strings.TrimSpace(cfg.AI.Provider))
	cfg.AI.FallbackProvider = strings.ToLower(strings.TrimSpace(cfg.AI.FallbackProvider))
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))

	return &cfg, nil
}
