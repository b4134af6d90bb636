package models

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration, loaded once at startup and
// passed explicitly into component constructors.
type Config struct {
	Catalog  CatalogConfig  `yaml:"catalog"`
	Download DownloadConfig `yaml:"download"`
	Extract  ExtractConfig  `yaml:"extract"`
	AI       AIConfig       `yaml:"ai"`
	Prompts  PromptConfig   `yaml:"prompts"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Database DatabaseConfig `yaml:"database"`
}

// CatalogConfig describes the works API used for candidate discovery.
// APIURL must contain a "{page}" placeholder for pagination.
type CatalogConfig struct {
	APIURL        string `yaml:"api_url"`
	MaxCandidates int    `yaml:"max_candidates"`
	PageDelayMs   int    `yaml:"page_delay_ms"`
	UserAgent     string `yaml:"user_agent"`
}

// DownloadConfig controls the fetch stage.
type DownloadConfig struct {
	Dir            string  `yaml:"dir"`
	MaxMB          int     `yaml:"max_mb"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxAttempts    int     `yaml:"max_attempts"`
	BackoffSeconds float64 `yaml:"backoff_seconds"`
}

// ExtractConfig controls the text extraction stage.
type ExtractConfig struct {
	MaxPages int `yaml:"max_pages"`
}

// AIConfig describes the inference service endpoint and its limits.
// The API key is read from the environment variable named by APIKeyEnv;
// it never appears in the config file.
type AIConfig struct {
	Endpoint       string  `yaml:"endpoint"`
	Model          string  `yaml:"model"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxAttempts    int     `yaml:"max_attempts"`
	BackoffSeconds float64 `yaml:"backoff_seconds"`
	MaxConcurrent  int     `yaml:"max_concurrent"`

	// Resolved from the environment during Load.
	APIKey string `yaml:"-"`
}

// PromptConfig holds the templates and the required response schema.
// UserPromptTemplate must contain an "{input_text}" placeholder.
type PromptConfig struct {
	SysPrompt          string   `yaml:"sys_prompt"`
	UserPromptTemplate string   `yaml:"user_prompt_template"`
	ResponseKeys       []string `yaml:"response_keys"`
	MaxInputChars      int      `yaml:"max_input_chars"`
}

// PipelineConfig bounds pipeline concurrency.
type PipelineConfig struct {
	WorkerCount int `yaml:"worker_count"`
}

// DatabaseConfig locates the SQLite database file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// DownloadTimeout returns the per-request timeout for downloads.
func (c DownloadConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Timeout returns the per-request timeout for inference calls.
func (c AIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoadConfig reads and validates a YAML configuration file, applies
// defaults, and resolves the inference API key from the environment.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.AI.APIKeyEnv != "" {
		cfg.AI.APIKey = os.Getenv(cfg.AI.APIKeyEnv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants the pipeline relies on.
func (c *Config) Validate() error {
	if c.Catalog.APIURL == "" {
		return fmt.Errorf("config: catalog.api_url is required")
	}
	if !strings.Contains(c.Catalog.APIURL, "{page}") {
		return fmt.Errorf("config: catalog.api_url must contain a {page} placeholder")
	}
	if c.Prompts.UserPromptTemplate == "" {
		return fmt.Errorf("config: prompts.user_prompt_template is required")
	}
	if !strings.Contains(c.Prompts.UserPromptTemplate, "{input_text}") {
		return fmt.Errorf("config: prompts.user_prompt_template must contain an {input_text} placeholder")
	}
	if len(c.Prompts.ResponseKeys) == 0 {
		return fmt.Errorf("config: prompts.response_keys must not be empty")
	}
	if c.Pipeline.WorkerCount < 1 {
		return fmt.Errorf("config: pipeline.worker_count must be at least 1")
	}
	if c.Download.MaxAttempts < 1 || c.AI.MaxAttempts < 1 {
		return fmt.Errorf("config: max_attempts must be at least 1")
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			MaxCandidates: 2000,
			PageDelayMs:   200,
			UserAgent:     "pdfharvest/1.0",
		},
		Download: DownloadConfig{
			Dir:            "data/raw",
			MaxMB:          20,
			TimeoutSeconds: 30,
			MaxAttempts:    3,
			BackoffSeconds: 2,
		},
		Extract: ExtractConfig{
			MaxPages: 5,
		},
		AI: AIConfig{
			Endpoint:       "https://api.openai.com/v1/chat/completions",
			Model:          "gpt-4o-mini",
			APIKeyEnv:      "OPENAI_API_KEY",
			MaxTokens:      300,
			TimeoutSeconds: 60,
			MaxAttempts:    3,
			BackoffSeconds: 2,
			MaxConcurrent:  2,
		},
		Prompts: PromptConfig{
			ResponseKeys: []string{
				"title", "summary", "tags", "year_published",
				"organization", "country", "language",
			},
			MaxInputChars: 12000,
		},
		Pipeline: PipelineConfig{
			WorkerCount: 4,
		},
		Database: DatabaseConfig{
			Path: "pdfharvest.db",
		},
	}
}
