package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(emailEnabledEnv, "")
	t.Setenv(confidenceGateEnv, "")

	cfg := Load()
	if !cfg.Alerts.Enabled {
		t.Fatal("expected alerts enabled by default")
	}
	if cfg.Alerts.ConfidenceThreshold != 0.8 {
		t.Fatalf("expected default threshold 0.8, got %v", cfg.Alerts.ConfidenceThreshold)
	}
}

func TestLoadAlertsDisabledFromFile(t *testing.T) {
	path := writeConfigFile(t, "alerts:\n  enabled: false\n")
	t.Setenv(configPathEnv, path)
	t.Setenv(emailEnabledEnv, "")

	cfg := Load()
	if cfg.Alerts.Enabled {
		t.Fatal("expected alerts.enabled: false from the file to stick")
	}
}

func TestLoadFileOverridesMerge(t *testing.T) {
	path := writeConfigFile(t, "alerts:\n  confidenceThreshold: 0.9\nscraping:\n  maxArticlesPerSource: 10\n")
	t.Setenv(configPathEnv, path)
	t.Setenv(confidenceGateEnv, "")

	cfg := Load()
	if cfg.Alerts.ConfidenceThreshold != 0.9 {
		t.Fatalf("expected threshold 0.9 from file, got %v", cfg.Alerts.ConfidenceThreshold)
	}
	if cfg.Scraping.MaxArticlesPerSource != 10 {
		t.Fatalf("expected max 10 from file, got %d", cfg.Scraping.MaxArticlesPerSource)
	}
	// Untouched options keep their defaults.
	if cfg.Scraping.FreshnessWindow.Hours() != 24 {
		t.Fatalf("expected default freshness window, got %s", cfg.Scraping.FreshnessWindow)
	}
}

func TestLoadEnvBeatsFile(t *testing.T) {
	path := writeConfigFile(t, "alerts:\n  enabled: false\n")
	t.Setenv(configPathEnv, path)
	t.Setenv(emailEnabledEnv, "true")

	cfg := Load()
	if !cfg.Alerts.Enabled {
		t.Fatal("expected env override to re-enable alerts over the file")
	}
}
