package config

import (
	"os"
	"path/filepath"
	"testing"

	"ngramlm/internal/service/lm"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected defaults to validate, got %v", err)
	}
	if cfg.Model.Order != 3 {
		t.Errorf("Expected order 3, got %d", cfg.Model.Order)
	}
	if cfg.LMConfig() != lm.DefaultConfig() {
		t.Errorf("Expected %+v, got %+v", lm.DefaultConfig(), cfg.LMConfig())
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Server.Port)
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	content := `
model:
  order: 2
  lambda: 0.5
  smoother: Discount
corpus:
  store_path: /tmp/reviews.db
server:
  port: 9000
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	t.Setenv("NGRAM_PORT", "9100")
	t.Setenv("NGRAM_DELTA", "0.25")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Model.Order != 2 || cfg.Model.Lambda != 0.5 {
		t.Errorf("Expected order 2 lambda 0.5, got %d %f", cfg.Model.Order, cfg.Model.Lambda)
	}
	if cfg.Model.Delta != 0.25 {
		t.Errorf("Expected delta 0.25 from env, got %f", cfg.Model.Delta)
	}
	if cfg.Model.Smoother != lm.SmootherDiscount {
		t.Errorf("Expected smoother '%s', got '%s'", lm.SmootherDiscount, cfg.Model.Smoother)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Expected port 9100 from env, got %d", cfg.Server.Port)
	}
	if !cfg.Model.UseBloom {
		t.Error("Expected unset fields to keep defaults")
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(*Config){
		"order":    func(c *Config) { c.Model.Order = 0 },
		"lambda":   func(c *Config) { c.Model.Lambda = 1 },
		"delta":    func(c *Config) { c.Model.Delta = 0 },
		"smoother": func(c *Config) { c.Model.Smoother = "witten-bell" },
		"port":     func(c *Config) { c.Server.Port = 0 },
		"store":    func(c *Config) { c.Corpus.StorePath = "" },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoadConfig_BadEnv(t *testing.T) {
	t.Setenv("NGRAM_ORDER", "three")
	if _, err := LoadConfig(""); err == nil {
		t.Error("Expected error for non-numeric NGRAM_ORDER")
	}
}
