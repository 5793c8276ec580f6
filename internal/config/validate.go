package config

import (
	"fmt"
	"slices"
	"strconv"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	validModes := []string{string(ModeLocal), string(ModeGCP)}
	if !slices.Contains(validModes, string(cfg.Mode)) {
		issues = append(issues, ValidationIssue{
			Path:    "mode",
			Message: fmt.Sprintf("must be one of %v, got %q", validModes, cfg.Mode),
		})
	}

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 0 || port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "port",
			Message: fmt.Sprintf("must be a number 0-65535, got %q", cfg.Port),
		})
	}

	validLevels := []string{"silent", "error", "warn", "info", "debug", "trace"}
	if !slices.Contains(validLevels, cfg.Log.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "log.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLevels, cfg.Log.Level),
		})
	}

	validBackends := []string{"memory", "sqlite", "firestore"}
	if !slices.Contains(validBackends, cfg.Storage.Backend) {
		issues = append(issues, ValidationIssue{
			Path:    "storage.backend",
			Message: fmt.Sprintf("must be one of %v, got %q", validBackends, cfg.Storage.Backend),
		})
	}
	if cfg.Storage.Backend == "sqlite" && cfg.Storage.SQLitePath == "" {
		issues = append(issues, ValidationIssue{Path: "storage.sqlite_path", Message: "required for sqlite backend"})
	}

	needsProject := cfg.Storage.Backend == "firestore" || cfg.AI.Provider == "vertex" || cfg.AI.FallbackProvider == "vertex"
	if needsProject && cfg.GCP.Project == "" {
		issues = append(issues, ValidationIssue{Path: "gcp.project", Message: "required for firestore storage or vertex provider"})
	}

	validProviders := []string{"gemini", "vertex", "openai", "none"}
	if !slices.Contains(validProviders, cfg.AI.Provider) {
		issues = append(issues, ValidationIssue{
			Path:    "ai.provider",
			Message: fmt.Sprintf("must be one of %v, got %q", validProviders, cfg.AI.Provider),
		})
	}
	if cfg.AI.FallbackProvider != "" {
		if !slices.Contains(validProviders[:3], cfg.AI.FallbackProvider) {
			issues = append(issues, ValidationIssue{
				Path:    "ai.fallback_provider",
				Message: fmt.Sprintf("must be one of %v, got %q", validProviders[:3], cfg.AI.FallbackProvider),
			})
		} else if cfg.AI.FallbackProvider == cfg.AI.Provider {
			issues = append(issues, ValidationIssue{Path: "ai.fallback_provider", Message: "must differ from ai.provider"})
		}
	}

	for _, p := range []string{cfg.AI.Provider, cfg.AI.FallbackProvider} {
		switch p {
		case "gemini":
			if cfg.AI.APIKey == "" {
				issues = append(issues, ValidationIssue{Path: "ai.api_key", Message: "required for gemini provider"})
			}
		case "openai":
			if cfg.AI.OpenAIAPIKey == "" {
				issues = append(issues, ValidationIssue{Path: "ai.openai_api_key", Message: "required for openai provider"})
			}
		}
	}

	if cfg.AI.Temperature < 0 || cfg.AI.Temperature > 2 {
		issues = append(issues, ValidationIssue{
			Path:    "ai.temperature",
			Message: fmt.Sprintf("must be between 0 and 2, got %v", cfg.AI.Temperature),
		})
	}
	if cfg.AI.RequestsPerSecond < 0 {
		issues = append(issues, ValidationIssue{Path: "ai.requests_per_second", Message: "must not be negative"})
	}
	if cfg.AI.RequestsPerSecond > 0 && cfg.AI.Burst < 1 {
		issues = append(issues, ValidationIssue{Path: "ai.burst", Message: "must be at least 1 when rate limiting"})
	}

	if cfg.Pipeline.HistoryDepth < 0 || cfg.Pipeline.HistoryDepth > 50 {
		issues = append(issues, ValidationIssue{
			Path:    "pipeline.history_depth",
			Message: fmt.Sprintf("must be 0-50, got %d", cfg.Pipeline.HistoryDepth),
		})
	}

	return issues
}
