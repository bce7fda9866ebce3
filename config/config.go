package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for qabot.
type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Persona   PersonaConfig   `yaml:"persona"`
	Cache     CacheConfig     `yaml:"cache"`
	Session   SessionConfig   `yaml:"session"`
	Server    ServerConfig    `yaml:"server"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CorpusConfig selects the dataset files, relative to the root directory.
type CorpusConfig struct {
	Includes       []string `yaml:"includes"`
	Excludes       []string `yaml:"excludes"`
	QuestionColumn string   `yaml:"question_column"`
	AnswerColumn   string   `yaml:"answer_column"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`    // "hash", "openai", "jina", "deepseek", "ollama", "googleai"
	Model     string `yaml:"model"`       // e.g., "all-minilm"
	APIKeyEnv string `yaml:"api_key_env"` // Environment variable for API key
	BaseURL   string `yaml:"base_url"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
	Stemming  bool   `yaml:"stemming"`
}

// LLMConfig holds the rephrasing model configuration.
type LLMConfig struct {
	Provider    string        `yaml:"provider"` // "googleai", "ollama", "openai", "openai-compatible", "echo"
	Model       string        `yaml:"model"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	MaxRetries  int           `yaml:"max_retries"`
	Timeout     time.Duration `yaml:"timeout"`
}

type PersonaConfig struct {
	Name    string `yaml:"name"`
	Role    string `yaml:"role"`
	Tone    string `yaml:"tone"`
	Speaker string `yaml:"speaker"` // label shown before every reply
}

// CacheConfig controls the persistent embedding cache.
type CacheConfig struct {
	Enabled   bool `yaml:"enabled"`
	QuerySize int  `yaml:"query_size"` // in-memory query embedding LRU entries
}

type SessionConfig struct {
	Backend    string        `yaml:"backend"` // "memory", "redis", "sqlite"
	RedisAddr  string        `yaml:"redis_addr"`
	RedisDB    int           `yaml:"redis_db"`
	SQLitePath string        `yaml:"sqlite_path"`
	TTL        time.Duration `yaml:"ttl"`
}

type ServerConfig struct {
	Addr  string `yaml:"addr"`
	Watch bool   `yaml:"watch"`
	// TurnTimeout bounds retrieval plus rephrasing for one HTTP message,
	// retries included. The write timeout is derived from it.
	TurnTimeout time.Duration `yaml:"turn_timeout"`
}

// TracingConfig configures OpenTelemetry export. Tracing is off without an endpoint.
type TracingConfig struct {
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Includes:       []string{"my_data.csv"},
			Excludes:       []string{"**/.qabot/**", "**/.git/**"},
			QuestionColumn: "question",
			AnswerColumn:   "answer",
		},
		Embedding: EmbeddingConfig{
			Provider:  "hash",
			Model:     "hash-bow",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 384,
			BatchSize: 64,
			Stemming:  true,
		},
		LLM: LLMConfig{
			Provider:    "googleai",
			Model:       "gemini-1.5-flash",
			APIKeyEnv:   "GEMINI_API_KEY",
			Temperature: 0.7,
			MaxTokens:   1024,
			MaxRetries:  3,
			Timeout:     60 * time.Second,
		},
		Persona: PersonaConfig{
			Name:    "Madhuri",
			Role:    "A Student",
			Tone:    "friendly and conversational",
			Speaker: "Malavathu Madhuri",
		},
		Cache: CacheConfig{
			Enabled:   true,
			QuerySize: 256,
		},
		Session: SessionConfig{
			Backend:    "memory",
			RedisAddr:  "localhost:6379",
			SQLitePath: ".qabot/sessions.db",
			TTL:        24 * time.Hour,
		},
		Server: ServerConfig{
			Addr:        ":8080",
			TurnTimeout: 90 * time.Second,
		},
		Tracing: TracingConfig{
			ServiceName: "qabot",
			SampleRate:  1.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for qabot.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "qabot.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".qabot", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the configuration and returns non-fatal warnings.
func (c *Config) Validate() ([]string, error) {
	var warnings []string

	if len(c.Corpus.Includes) == 0 {
		return nil, fmt.Errorf("corpus.includes must name at least one dataset file or pattern")
	}
	if c.Corpus.QuestionColumn == "" || c.Corpus.AnswerColumn == "" {
		return nil, fmt.Errorf("corpus.question_column and corpus.answer_column must be set")
	}
	if c.Embedding.Dimension <= 0 && c.Embedding.Provider == "hash" {
		return nil, fmt.Errorf("embedding.dimension must be positive for the hash provider")
	}
	if c.Embedding.BatchSize <= 0 {
		warnings = append(warnings, "embedding.batch_size <= 0, using 64")
		c.Embedding.BatchSize = 64
	}
	switch c.Session.Backend {
	case "memory", "redis", "sqlite":
	default:
		return nil, fmt.Errorf("unknown session backend: %s", c.Session.Backend)
	}
	if c.Server.TurnTimeout <= 0 {
		warnings = append(warnings, "server.turn_timeout <= 0, using 90s")
		c.Server.TurnTimeout = 90 * time.Second
	}
	if c.LLM.Provider == "echo" {
		warnings = append(warnings, "llm.provider is echo: answers are returned without rephrasing")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		warnings = append(warnings, fmt.Sprintf("tracing.sample_rate %.2f outside [0,1]", c.Tracing.SampleRate))
	}

	return warnings, nil
}

// CacheDBPath returns the path to the embedding cache database.
func CacheDBPath(dir string) string {
	return filepath.Join(dir, ".qabot", "cache.db")
}

// ResolvePath makes p absolute relative to dir.
func ResolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// EnsureDataDir ensures the .qabot directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".qabot"), 0755)
}
