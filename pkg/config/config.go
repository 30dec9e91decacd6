package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Addr         string   `yaml:"addr"`
	APIKeys      []string `yaml:"api_keys"`
	AllowOrigins []string `yaml:"allow_origins"`
	RateLimit    float64  `yaml:"rate_limit"`
	RateBurst    int      `yaml:"rate_burst"`
}

type OpenAIConfig struct {
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	EmbedModel      string `yaml:"embed_model"`
	ChatModel       string `yaml:"chat_model"`
	ModerationModel string `yaml:"moderation_model"`
}

type DatabaseConfig struct {
	URL           string `yaml:"url"`
	ChunkTable    string `yaml:"chunk_table"`
	DocumentTable string `yaml:"document_table"`
	VectorDim     int    `yaml:"vector_dim"`
}

type IngestConfig struct {
	MaxUploadMB int `yaml:"max_upload_mb"`
	WindowSize  int `yaml:"window_size"`
	Overlap     int `yaml:"overlap"`
}

type QueryConfig struct {
	TopK        int     `yaml:"top_k"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Database DatabaseConfig `yaml:"database"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Query    QueryConfig    `yaml:"query"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/recall/config.yaml"),
			"/etc/recall/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Server.RateLimit == 0 {
		config.Server.RateLimit = 5.0
	}
	if config.Server.RateBurst == 0 {
		config.Server.RateBurst = 10
	}

	if config.OpenAI.EmbedModel == "" {
		config.OpenAI.EmbedModel = "text-embedding-3-small"
	}
	if config.OpenAI.ChatModel == "" {
		config.OpenAI.ChatModel = "gpt-4o-mini"
	}
	if config.OpenAI.ModerationModel == "" {
		config.OpenAI.ModerationModel = "omni-moderation-latest"
	}

	if config.Database.ChunkTable == "" {
		config.Database.ChunkTable = "chunks"
	}
	if config.Database.DocumentTable == "" {
		config.Database.DocumentTable = "documents"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 1536
	}

	if config.Ingest.MaxUploadMB == 0 {
		config.Ingest.MaxUploadMB = 15
	}
	if config.Ingest.WindowSize == 0 {
		config.Ingest.WindowSize = 800
	}
	if config.Ingest.Overlap == 0 {
		config.Ingest.Overlap = 200
	}

	if config.Query.TopK == 0 {
		config.Query.TopK = 5
	}
	if config.Query.MaxTokens == 0 {
		config.Query.MaxTokens = 2000
	}
	if config.Query.Temperature == 0 {
		config.Query.Temperature = 0.2
	}
}

func mergeWithEnv(config *Config) {
	if addr := os.Getenv("RECALL_ADDR"); addr != "" {
		config.Server.Addr = addr
	}
	if keys := os.Getenv("RECALL_API_KEYS"); keys != "" {
		config.Server.APIKeys = splitAndTrim(keys)
	}
	if origins := os.Getenv("RECALL_ALLOW_ORIGINS"); origins != "" {
		config.Server.AllowOrigins = splitAndTrim(origins)
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.OpenAI.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
