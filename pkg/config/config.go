// Package config loads pdfrag settings from defaults, a YAML file, the
// environment (PDFRAG_ prefix) and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/perbu/pdfrag/pkg/pdfrag"
)

// Embedding providers
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderSimple = "simple"
)

// EnvPrefix is prepended to environment overrides, e.g. PDFRAG_INDEX_PATH.
const EnvPrefix = "PDFRAG"

// EmbedderConfig selects and configures the embedding provider.
type EmbedderConfig struct {
	Provider    string        `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKeyEnv   string        `mapstructure:"api_key_env" yaml:"api_key_env"`
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url"`
	Dimensions  int           `mapstructure:"dimensions" yaml:"dimensions"`
	BatchSize   int           `mapstructure:"batch_size" yaml:"batch_size"`
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency"`
	CacheSize   int           `mapstructure:"cache_size" yaml:"cache_size"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl" yaml:"-"`
}

// MarshalYAML writes cache_ttl as a duration string such as "10m0s".
func (c EmbedderConfig) MarshalYAML() (any, error) {
	// Fields drops the methods, and must be exported for yaml to inline it.
	type Fields EmbedderConfig
	return struct {
		Fields   `yaml:",inline"`
		CacheTTL string `yaml:"cache_ttl"`
	}{Fields(c), c.CacheTTL.String()}, nil
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Config is the root configuration.
type Config struct {
	DocumentPath string         `mapstructure:"document_path" yaml:"document_path"`
	IndexPath    string         `mapstructure:"index_path" yaml:"index_path"`
	ChunkSize    int            `mapstructure:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap int            `mapstructure:"chunk_overlap" yaml:"chunk_overlap"`
	TopK         int            `mapstructure:"top_k" yaml:"top_k"`
	Metric       string         `mapstructure:"metric" yaml:"metric"`
	Embedder     EmbedderConfig `mapstructure:"embedder" yaml:"embedder"`
	Log          LogConfig      `mapstructure:"log" yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DocumentPath: "handbook.pdf",
		IndexPath:    "handbook_index.gob",
		ChunkSize:    1000,
		ChunkOverlap: 200,
		TopK:         pdfrag.DefaultTopK,
		Metric:       string(pdfrag.MetricL2),
		Embedder: EmbedderConfig{
			Provider:    ProviderOpenAI,
			BatchSize:   64,
			Concurrency: 4,
			CacheSize:   256,
			CacheTTL:    10 * time.Minute,
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"document":  "document_path",
	"index":     "index_path",
	"top":       "top_k",
	"metric":    "metric",
	"provider":  "embedder.provider",
	"log-level": "log.level",
}

// Load reads configuration. An empty path uses defaults, the environment and
// flags only; a named file that does not exist is an error. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyProviderDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("document_path", d.DocumentPath)
	v.SetDefault("index_path", d.IndexPath)
	v.SetDefault("chunk_size", d.ChunkSize)
	v.SetDefault("chunk_overlap", d.ChunkOverlap)
	v.SetDefault("top_k", d.TopK)
	v.SetDefault("metric", d.Metric)
	v.SetDefault("embedder.provider", d.Embedder.Provider)
	v.SetDefault("embedder.model", d.Embedder.Model)
	v.SetDefault("embedder.api_key_env", d.Embedder.APIKeyEnv)
	v.SetDefault("embedder.base_url", d.Embedder.BaseURL)
	v.SetDefault("embedder.dimensions", d.Embedder.Dimensions)
	v.SetDefault("embedder.batch_size", d.Embedder.BatchSize)
	v.SetDefault("embedder.concurrency", d.Embedder.Concurrency)
	v.SetDefault("embedder.cache_size", d.Embedder.CacheSize)
	v.SetDefault("embedder.cache_ttl", d.Embedder.CacheTTL)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

func (c *Config) applyProviderDefaults() {
	c.Embedder.Provider = strings.ToLower(strings.TrimSpace(c.Embedder.Provider))
	switch c.Embedder.Provider {
	case ProviderOpenAI:
		if c.Embedder.Model == "" {
			c.Embedder.Model = "text-embedding-3-small"
		}
		if c.Embedder.APIKeyEnv == "" {
			c.Embedder.APIKeyEnv = "OPENAI_API_KEY"
		}
	case ProviderGemini:
		if c.Embedder.Model == "" {
			c.Embedder.Model = "text-embedding-004"
		}
		if c.Embedder.APIKeyEnv == "" {
			c.Embedder.APIKeyEnv = "GEMINI_API_KEY"
		}
	case ProviderSimple:
		if c.Embedder.Dimensions == 0 {
			c.Embedder.Dimensions = 256
		}
	}
}

// Validate reports invalid settings as pdfrag.ErrConfiguration.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.IndexPath) == "" {
		errs = append(errs, errors.New("index_path is required"))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, errors.New("chunk_size must be greater than zero"))
	}
	if c.ChunkOverlap < 0 {
		errs = append(errs, errors.New("chunk_overlap must be zero or greater"))
	}
	if c.ChunkSize > 0 && c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, errors.New("chunk_overlap must be smaller than chunk_size"))
	}
	if c.TopK <= 0 {
		errs = append(errs, errors.New("top_k must be greater than zero"))
	}
	if _, err := pdfrag.ParseMetric(c.Metric); err != nil {
		errs = append(errs, fmt.Errorf("metric %q is not one of l2, cosine", c.Metric))
	}
	switch c.Embedder.Provider {
	case ProviderOpenAI, ProviderGemini, ProviderSimple:
	default:
		errs = append(errs, fmt.Errorf("embedder.provider %q is not one of openai, gemini, simple", c.Embedder.Provider))
	}
	if c.Embedder.Dimensions < 0 {
		errs = append(errs, errors.New("embedder.dimensions must be zero or greater"))
	}
	if c.Embedder.BatchSize <= 0 {
		errs = append(errs, errors.New("embedder.batch_size must be greater than zero"))
	}
	if c.Embedder.Concurrency <= 0 {
		errs = append(errs, errors.New("embedder.concurrency must be greater than zero"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", pdfrag.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

// Save writes cfg to path as YAML, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
