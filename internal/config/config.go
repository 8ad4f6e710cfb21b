package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"ngramlm/internal/service/lm"
)

type Config struct {
	Model   ModelConfig   `yaml:"model"`
	Corpus  CorpusConfig  `yaml:"corpus"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

type ModelConfig struct {
	Order             int     `yaml:"order"`
	Lambda            float64 `yaml:"lambda"`
	Delta             float64 `yaml:"delta"`
	Smoother          string  `yaml:"smoother"`
	UseBloom          bool    `yaml:"use_bloom"`
	ExpectedItems     uint    `yaml:"expected_items"`
	FalsePositiveRate float64 `yaml:"false_positive_rate"`
	Seed              int64   `yaml:"seed"` // 0 seeds from the clock
}

type CorpusConfig struct {
	Dir           string   `yaml:"dir"`
	StorePath     string   `yaml:"store_path"`
	Includes      []string `yaml:"includes"`
	Excludes      []string `yaml:"excludes"`
	StopwordsFile string   `yaml:"stopwords_file"`
}

type ServerConfig struct {
	Port       int  `yaml:"port"`
	MCPEnabled bool `yaml:"mcp_enabled"`
}

type LoggingConfig struct {
	Level       string   `yaml:"level"`
	OutputPaths []string `yaml:"output_paths"`
}

// DefaultConfig returns a trigram configuration serving on port 8080
func DefaultConfig() *Config {
	modelDefaults := lm.DefaultConfig()
	return &Config{
		Model: ModelConfig{
			Order:             modelDefaults.Order,
			Lambda:            modelDefaults.Lambda,
			Delta:             modelDefaults.Delta,
			Smoother:          lm.SmootherInterpolation,
			UseBloom:          true,
			ExpectedItems:     100000,
			FalsePositiveRate: 0.01,
		},
		Corpus: CorpusConfig{
			StorePath: "corpus.db",
			Includes:  []string{"**/*.json"},
		},
		Server: ServerConfig{
			Port:       8080,
			MCPEnabled: true,
		},
		Logging: LoggingConfig{
			Level:       "info",
			OutputPaths: []string{"stdout"},
		},
	}
}

// LoadConfig reads the YAML file at path over the defaults, then applies
// NGRAM_* environment overrides (a .env file in the working directory is
// loaded first when present). A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("NGRAM_ORDER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid NGRAM_ORDER: %w", err)
		}
		c.Model.Order = n
	}
	if v := os.Getenv("NGRAM_LAMBDA"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid NGRAM_LAMBDA: %w", err)
		}
		c.Model.Lambda = f
	}
	if v := os.Getenv("NGRAM_DELTA"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid NGRAM_DELTA: %w", err)
		}
		c.Model.Delta = f
	}
	if v := os.Getenv("NGRAM_SMOOTHER"); v != "" {
		c.Model.Smoother = v
	}
	if v := os.Getenv("NGRAM_CORPUS_DIR"); v != "" {
		c.Corpus.Dir = v
	}
	if v := os.Getenv("NGRAM_STORE_PATH"); v != "" {
		c.Corpus.StorePath = v
	}
	if v := os.Getenv("NGRAM_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid NGRAM_PORT: %w", err)
		}
		c.Server.Port = n
	}
	if v := os.Getenv("NGRAM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate checks the model parameters and server settings
func (c *Config) Validate() error {
	if c.Model.Order < 1 {
		return fmt.Errorf("model order must be at least 1, got %d", c.Model.Order)
	}
	if c.Model.Lambda <= 0 || c.Model.Lambda >= 1 {
		return fmt.Errorf("model lambda must be in (0,1), got %f", c.Model.Lambda)
	}
	if c.Model.Delta <= 0 || c.Model.Delta >= 1 {
		return fmt.Errorf("model delta must be in (0,1), got %f", c.Model.Delta)
	}
	if c.Model.UseBloom && (c.Model.FalsePositiveRate <= 0 || c.Model.FalsePositiveRate >= 1) {
		return fmt.Errorf("bloom false positive rate must be in (0,1), got %f", c.Model.FalsePositiveRate)
	}
	known := false
	for _, name := range lm.SmootherNames() {
		if strings.EqualFold(c.Model.Smoother, name) {
			c.Model.Smoother = name
			known = true
		}
	}
	if !known {
		return fmt.Errorf("unknown smoother %q (available: %v)", c.Model.Smoother, lm.SmootherNames())
	}
	if c.Corpus.StorePath == "" {
		return fmt.Errorf("corpus store_path is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

// LMConfig returns the language model parameters
func (c *Config) LMConfig() lm.Config {
	return lm.Config{
		Order:  c.Model.Order,
		Lambda: c.Model.Lambda,
		Delta:  c.Model.Delta,
	}
}
