package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the assistant. It is built once at
// process start and handed to each component constructor.
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	Documents DocumentsConfig `yaml:"documents"`
	Agent     AgentConfig     `yaml:"agent"`
	Web       WebConfig       `yaml:"web"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LLMConfig configures the local text-generation service.
type LLMConfig struct {
	Provider     string  `yaml:"provider" validate:"oneof=ollama echo"`
	BaseURL      string  `yaml:"base_url" validate:"omitempty,url"`
	Model        string  `yaml:"model" validate:"required"`
	Temperature  float64 `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens    int     `yaml:"max_tokens" validate:"gte=0"`
	TimeoutSecs  int     `yaml:"timeout_secs" validate:"gt=0"`
	MaxRetries   int     `yaml:"max_retries" validate:"gte=0,lte=10"`
	SystemPrompt string  `yaml:"system_prompt,omitempty"`
}

// EmbeddingConfig configures the local embedding service.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider" validate:"oneof=ollama hash"`
	BaseURL     string `yaml:"base_url" validate:"omitempty,url"`
	Model       string `yaml:"model" validate:"required"`
	Dimension   int    `yaml:"dimension" validate:"gte=0"` // 0 = learn from the service
	BatchSize   int    `yaml:"batch_size" validate:"gt=0"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gt=0"`
	MaxRetries  int    `yaml:"max_retries" validate:"gte=0,lte=10"`
}

// StoreConfig selects and configures the vector store.
type StoreConfig struct {
	Backend    string       `yaml:"backend" validate:"oneof=bolt sqlite qdrant memory"`
	Path       string       `yaml:"path" validate:"required_unless=Backend memory"`
	Collection string       `yaml:"collection" validate:"required"`
	Qdrant     QdrantConfig `yaml:"qdrant"`
}

// QdrantConfig holds connection details for a Qdrant server.
type QdrantConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port" validate:"gte=0,lte=65535"`
	APIKey string `yaml:"api_key,omitempty"`
	UseTLS bool   `yaml:"use_tls"`
}

// DocumentsConfig controls which files are ingested and how they are chunked.
type DocumentsConfig struct {
	Dir          string   `yaml:"dir" validate:"required"`
	Extensions   []string `yaml:"extensions" validate:"min=1,dive,startswith=."`
	Excludes     []string `yaml:"excludes"`
	ChunkSize    int      `yaml:"chunk_size" validate:"gt=0"`
	ChunkOverlap int      `yaml:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"`
}

// AgentConfig controls retrieval and prompt assembly per turn.
type AgentConfig struct {
	ContextMode  string  `yaml:"context_mode" validate:"oneof=STRICT REGULAR"`
	TopK         int     `yaml:"top_k" validate:"gt=0"`
	TokenBudget  int     `yaml:"token_budget" validate:"gt=0"`
	MMRLambda    float64 `yaml:"mmr_lambda" validate:"gte=0,lte=1"` // 0 = disabled
	MinScore     float64 `yaml:"min_score" validate:"gte=-1,lte=1"` // 0 = disabled
	HistoryTurns int     `yaml:"history_turns" validate:"gte=0"`
	CacheSize    int     `yaml:"cache_size" validate:"gte=0"` // 0 = disabled
	CacheTTLSecs int     `yaml:"cache_ttl_secs" validate:"gte=0"`
}

// WebConfig configures the chat page server.
type WebConfig struct {
	Addr  string `yaml:"addr" validate:"hostname_port"`
	Title string `yaml:"title"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "ollama",
			BaseURL:     "http://localhost:11434",
			Model:       "gemma:2b",
			Temperature: 0.2,
			TimeoutSecs: 120,
		},
		Embedding: EmbeddingConfig{
			Provider:    "ollama",
			BaseURL:     "http://localhost:11434",
			Model:       "nomic-embed-text",
			BatchSize:   32,
			TimeoutSecs: 30,
		},
		Store: StoreConfig{
			Backend:    "bolt",
			Path:       filepath.Join(".docqa", "db"),
			Collection: "knowledge_base",
			Qdrant: QdrantConfig{
				Host: "localhost",
				Port: 6334,
			},
		},
		Documents: DocumentsConfig{
			Dir:          "data",
			Extensions:   []string{".pdf", ".txt", ".md", ".py", ".R", ".sh"},
			Excludes:     []string{"**/.git/**", "**/node_modules/**", "**/.docqa/**"},
			ChunkSize:    1000,
			ChunkOverlap: 200,
		},
		Agent: AgentConfig{
			ContextMode:  "REGULAR",
			TopK:         5,
			TokenBudget:  3000,
			CacheSize:    64,
			CacheTTLSecs: 300,
		},
		Web: WebConfig{
			Addr:  "127.0.0.1:8501",
			Title: "Document Assistant",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file on top of the defaults.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.normalize()

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for docqa.yaml,
// then .docqa/config.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".docqa", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// FileName is the per-project config file looked up by LoadFromDir.
const FileName = "docqa.yaml"

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadEnv reads a .env file from dir if there is one. Variables already set
// in the process environment win.
func LoadEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}

// Environment variables that override the file configuration.
const (
	EnvLLMModel       = "DOCQA_LLM_MODEL"
	EnvEmbeddingModel = "DOCQA_EMBEDDING_MODEL"
	EnvStorePath      = "DOCQA_STORE_PATH"
	EnvDocumentsDir   = "DOCQA_DOCUMENTS_DIR"
	EnvContextMode    = "DOCQA_CONTEXT_MODE"
	EnvOllamaURL      = "DOCQA_OLLAMA_URL"
	EnvTopK           = "DOCQA_TOP_K"
)

// ApplyEnv applies DOCQA_* overrides using lookup (normally os.LookupEnv).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvLLMModel); ok && v != "" {
		c.LLM.Model = v
	}
	if v, ok := lookup(EnvEmbeddingModel); ok && v != "" {
		c.Embedding.Model = v
	}
	if v, ok := lookup(EnvStorePath); ok && v != "" {
		c.Store.Path = v
	}
	if v, ok := lookup(EnvDocumentsDir); ok && v != "" {
		c.Documents.Dir = v
	}
	if v, ok := lookup(EnvContextMode); ok && v != "" {
		c.Agent.ContextMode = v
	}
	if v, ok := lookup(EnvOllamaURL); ok && v != "" {
		c.LLM.BaseURL = v
		c.Embedding.BaseURL = v
	}
	if v, ok := lookup(EnvTopK); ok && v != "" {
		k, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTopK, err)
		}
		c.Agent.TopK = k
	}
	c.normalize()
	return nil
}

func (c *Config) normalize() {
	c.Agent.ContextMode = strings.ToUpper(strings.TrimSpace(c.Agent.ContextMode))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.LLM.BaseURL = strings.TrimRight(c.LLM.BaseURL, "/")
	c.Embedding.BaseURL = strings.TrimRight(c.Embedding.BaseURL, "/")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration and reports the first invalid fields.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg += fmt.Sprintf(" (%s)", fe.Param())
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// Resolve makes the store path and document directory absolute relative to root.
func (c *Config) Resolve(root string) {
	if c.Store.Path != "" && !filepath.IsAbs(c.Store.Path) {
		c.Store.Path = filepath.Join(root, c.Store.Path)
	}
	if c.Documents.Dir != "" && !filepath.IsAbs(c.Documents.Dir) {
		c.Documents.Dir = filepath.Join(root, c.Documents.Dir)
	}
}
