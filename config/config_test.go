package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Retrieve.TopN != 100 {
		t.Errorf("expected TopN=100, got %d", cfg.Retrieve.TopN)
	}
	if cfg.Retrieve.K1 != 1.2 {
		t.Errorf("expected K1=1.2, got %f", cfg.Retrieve.K1)
	}
	if cfg.Retrieve.B != 0.75 {
		t.Errorf("expected B=0.75, got %f", cfg.Retrieve.B)
	}
	if cfg.Retrieve.Model != ModelBM25 {
		t.Errorf("expected Model=bm25, got %s", cfg.Retrieve.Model)
	}
	if cfg.Expansion.FeedbackDocs != 5 || cfg.Expansion.FeedbackTerms != 5 {
		t.Errorf("expected feedback 5/5, got %d/%d", cfg.Expansion.FeedbackDocs, cfg.Expansion.FeedbackTerms)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "retrieval.yaml")

	content := `
index:
  positions: true
retrieve:
  model: tfidf
  top_n: 10
expansion:
  feedback_docs: 3
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cfg.Index.Positions {
		t.Errorf("expected Positions=true, got %v", cfg.Index.Positions)
	}
	if cfg.Retrieve.Model != ModelTFIDF {
		t.Errorf("expected Model=tfidf, got %s", cfg.Retrieve.Model)
	}
	if cfg.Retrieve.TopN != 10 {
		t.Errorf("expected TopN=10, got %d", cfg.Retrieve.TopN)
	}
	if cfg.Expansion.FeedbackDocs != 3 {
		t.Errorf("expected FeedbackDocs=3, got %d", cfg.Expansion.FeedbackDocs)
	}
	if cfg.Retrieve.K1 != 1.2 {
		t.Errorf("unset fields should keep defaults, got K1=%f", cfg.Retrieve.K1)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "retrieval.yaml")
	if err := os.WriteFile(configPath, []byte("retrieve: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(configPath); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	if err := EnsureDataDir(tmpDir); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(tmpDir, DataDir, "config.yaml")

	content := `
output:
  tag: bm25-prf
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Output.Tag != "bm25-prf" {
		t.Errorf("expected Tag=bm25-prf, got %s", cfg.Output.Tag)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RETRIEVAL_MODEL", "tfidf")
	t.Setenv("RETRIEVAL_TOP_N", "7")
	t.Setenv("RETRIEVAL_LOGGING_LEVEL", "debug")
	t.Setenv("RETRIEVAL_WORKERS", "not-a-number")

	cfg, err := LoadFromDir(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Retrieve.Model != ModelTFIDF {
		t.Errorf("expected Model=tfidf, got %s", cfg.Retrieve.Model)
	}
	if cfg.Retrieve.TopN != 7 {
		t.Errorf("expected TopN=7, got %d", cfg.Retrieve.TopN)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected Level=debug, got %s", cfg.Logging.Level)
	}
	if cfg.Retrieve.Workers != 0 {
		t.Errorf("invalid override should be ignored, got Workers=%d", cfg.Retrieve.Workers)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown model", func(c *Config) { c.Retrieve.Model = "lm" }},
		{"zero top n", func(c *Config) { c.Retrieve.TopN = 0 }},
		{"b above one", func(c *Config) { c.Retrieve.B = 1.5 }},
		{"negative k1", func(c *Config) { c.Retrieve.K1 = -1 }},
		{"negative workers", func(c *Config) { c.Retrieve.Workers = -2 }},
		{"expansion with tfidf", func(c *Config) {
			c.Retrieve.Model = ModelTFIDF
			c.Expansion.Enabled = true
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retrieval.yaml")
	cfg := DefaultConfig()
	cfg.Output.Tag = "Version 1.2"
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Output.Tag != "Version 1.2" {
		t.Errorf("expected Tag to survive save, got %q", loaded.Output.Tag)
	}
}

func TestIndexDBPath(t *testing.T) {
	path := IndexDBPath("/home/user/project")
	expected := filepath.Join("/home/user/project", ".retrieval", "index.db")
	if path != expected {
		t.Errorf("expected %s, got %s", expected, path)
	}
}
