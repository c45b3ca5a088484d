package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DataDir is the per-corpus directory holding the index and optional config.
const DataDir = ".retrieval"

// Config holds all configuration for the retrieval engine.
type Config struct {
	Index     IndexConfig     `yaml:"index"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Expansion ExpansionConfig `yaml:"expansion"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// IndexConfig holds indexing configuration.
type IndexConfig struct {
	Corpus    []string `yaml:"corpus"`    // files or doublestar patterns relative to the root
	Excludes  []string `yaml:"excludes"`
	Positions bool     `yaml:"positions"` // record token offsets in postings
}

// RetrieveConfig holds scoring configuration.
type RetrieveConfig struct {
	Queries   []string `yaml:"queries"`
	Model     string   `yaml:"model"` // "bm25" or "tfidf"
	TopN      int      `yaml:"top_n"`
	K1        float64  `yaml:"k1"`
	B         float64  `yaml:"b"`
	Workers   int      `yaml:"workers"`    // 0 = GOMAXPROCS
	CacheSize int      `yaml:"cache_size"` // score tables kept per run, 0 disables
}

// ExpansionConfig holds query expansion configuration.
type ExpansionConfig struct {
	Enabled             bool   `yaml:"enabled"`
	Synonyms            string `yaml:"synonyms"` // JSONC synonym file, empty disables synonyms
	MinSynonymFrequency int    `yaml:"min_synonym_frequency"`
	FeedbackDocs        int    `yaml:"feedback_docs"`
	FeedbackTerms       int    `yaml:"feedback_terms"`
}

// OutputConfig holds run-file configuration.
type OutputConfig struct {
	Path string `yaml:"path"`
	Tag  string `yaml:"tag"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

const (
	ModelBM25  = "bm25"
	ModelTFIDF = "tfidf"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Corpus:    []string{"corpus.jsonl"},
			Excludes:  []string{"**/.retrieval/**", "**/.git/**"},
			Positions: false,
		},
		Retrieve: RetrieveConfig{
			Queries:   []string{"queries.jsonl"},
			Model:     ModelBM25,
			TopN:      100,
			K1:        1.2,
			B:         0.75,
			Workers:   0,
			CacheSize: 1024,
		},
		Expansion: ExpansionConfig{
			Enabled:             false,
			MinSynonymFrequency: 1,
			FeedbackDocs:        5,
			FeedbackTerms:       5,
		},
		Output: OutputConfig{
			Path: "Results.txt",
			Tag:  "run",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file and applies RETRIEVAL_*
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for retrieval.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "retrieval.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, DataDir, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RETRIEVAL_MODEL"); v != "" {
		cfg.Retrieve.Model = v
	}
	if v := os.Getenv("RETRIEVAL_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retrieve.TopN = n
		}
	}
	if v := os.Getenv("RETRIEVAL_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retrieve.Workers = n
		}
	}
	if v := os.Getenv("RETRIEVAL_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RETRIEVAL_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch c.Retrieve.Model {
	case ModelBM25, ModelTFIDF:
	default:
		return fmt.Errorf("retrieve.model: unknown model %q (want %s or %s)", c.Retrieve.Model, ModelBM25, ModelTFIDF)
	}
	if c.Retrieve.TopN <= 0 {
		return fmt.Errorf("retrieve.top_n must be positive, got %d", c.Retrieve.TopN)
	}
	if c.Retrieve.K1 < 0 {
		return fmt.Errorf("retrieve.k1 must not be negative, got %g", c.Retrieve.K1)
	}
	if c.Retrieve.B < 0 || c.Retrieve.B > 1 {
		return fmt.Errorf("retrieve.b must be within [0, 1], got %g", c.Retrieve.B)
	}
	if c.Retrieve.Workers < 0 {
		return fmt.Errorf("retrieve.workers must not be negative, got %d", c.Retrieve.Workers)
	}
	if c.Expansion.FeedbackDocs < 0 || c.Expansion.FeedbackTerms < 0 {
		return fmt.Errorf("expansion feedback sizes must not be negative")
	}
	if c.Expansion.Enabled && c.Retrieve.Model != ModelBM25 {
		return fmt.Errorf("expansion requires the %s model", ModelBM25)
	}
	return nil
}

// WorkerCount resolves Workers, where zero means one per CPU.
func (c *Config) WorkerCount() int {
	if c.Retrieve.Workers > 0 {
		return c.Retrieve.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexDBPath returns the path to the index database.
func IndexDBPath(dir string) string {
	return filepath.Join(dir, DataDir, "index.db")
}

// EnsureDataDir ensures the .retrieval directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, DataDir), 0755)
}
