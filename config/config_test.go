package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Documents.ChunkSize != 1000 {
		t.Errorf("expected ChunkSize=1000, got %d", cfg.Documents.ChunkSize)
	}
	if cfg.Documents.ChunkOverlap != 200 {
		t.Errorf("expected ChunkOverlap=200, got %d", cfg.Documents.ChunkOverlap)
	}
	if cfg.Agent.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Agent.TopK)
	}
	if cfg.Agent.ContextMode != "REGULAR" {
		t.Errorf("expected ContextMode=REGULAR, got %s", cfg.Agent.ContextMode)
	}
	if cfg.LLM.MaxRetries != 0 {
		t.Errorf("expected no LLM retries by default, got %d", cfg.LLM.MaxRetries)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/docqa.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, FileName)

	content := `
llm:
  model: llama3
documents:
  chunk_size: 400
  chunk_overlap: 50
agent:
  context_mode: strict
  top_k: 3
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LLM.Model != "llama3" {
		t.Errorf("expected Model=llama3, got %s", cfg.LLM.Model)
	}
	if cfg.Documents.ChunkSize != 400 {
		t.Errorf("expected ChunkSize=400, got %d", cfg.Documents.ChunkSize)
	}
	if cfg.Agent.ContextMode != "STRICT" {
		t.Errorf("expected context mode to be upper-cased, got %s", cfg.Agent.ContextMode)
	}
	if cfg.Agent.TopK != 3 {
		t.Errorf("expected TopK=3, got %d", cfg.Agent.TopK)
	}
	// untouched sections keep their defaults
	if cfg.Embedding.Model != "nomic-embed-text" {
		t.Errorf("expected default embedding model, got %s", cfg.Embedding.Model)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, FileName)
	if err := os.WriteFile(configPath, []byte("agent: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, ".docqa"), 0755); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(tmpDir, ".docqa", "config.yaml")

	content := `
agent:
  token_budget: 8000
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Agent.TokenBudget != 8000 {
		t.Errorf("expected TokenBudget=8000, got %d", cfg.Agent.TokenBudget)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)
	cfg := DefaultConfig()
	cfg.LLM.Model = "mistral"

	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.LLM.Model != "mistral" {
		t.Errorf("expected mistral, got %s", loaded.LLM.Model)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvLLMModel:    "phi3",
		EnvContextMode: "strict",
		EnvOllamaURL:   "http://gpu-box:11434/",
		EnvTopK:        "7",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatal(err)
	}

	if cfg.LLM.Model != "phi3" {
		t.Errorf("expected phi3, got %s", cfg.LLM.Model)
	}
	if cfg.Agent.ContextMode != "STRICT" {
		t.Errorf("expected STRICT, got %s", cfg.Agent.ContextMode)
	}
	if cfg.Embedding.BaseURL != "http://gpu-box:11434" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.Embedding.BaseURL)
	}
	if cfg.Agent.TopK != 7 {
		t.Errorf("expected TopK=7, got %d", cfg.Agent.TopK)
	}

	env[EnvTopK] = "many"
	if err := cfg.ApplyEnv(lookup); err == nil {
		t.Error("expected error for non-numeric top k")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown context mode", func(c *Config) { c.Agent.ContextMode = "LOOSE" }, "ContextMode"},
		{"overlap not below size", func(c *Config) { c.Documents.ChunkOverlap = c.Documents.ChunkSize }, "ChunkOverlap"},
		{"zero top k", func(c *Config) { c.Agent.TopK = 0 }, "TopK"},
		{"extension without dot", func(c *Config) { c.Documents.Extensions = []string{"txt"} }, "Extensions"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "chroma" }, "Backend"},
		{"bad web addr", func(c *Config) { c.Web.Addr = "localhost" }, "Addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected error to mention %s, got %v", tt.field, err)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resolve("/home/user/notes")

	if cfg.Store.Path != filepath.Join("/home/user/notes", ".docqa", "db") {
		t.Errorf("unexpected store path %s", cfg.Store.Path)
	}
	if cfg.Documents.Dir != filepath.Join("/home/user/notes", "data") {
		t.Errorf("unexpected documents dir %s", cfg.Documents.Dir)
	}

	cfg.Documents.Dir = "/abs/docs"
	cfg.Resolve("/elsewhere")
	if cfg.Documents.Dir != "/abs/docs" {
		t.Errorf("absolute path should be kept, got %s", cfg.Documents.Dir)
	}
}
