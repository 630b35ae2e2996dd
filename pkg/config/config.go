package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API struct {
		Host      string `yaml:"host"`
		Port      int    `yaml:"port"`
		StaticDir string `yaml:"static_dir"`
	} `yaml:"api"`

	OpenAI struct {
		APIKey         string  `yaml:"api_key"`
		Model          string  `yaml:"model"`
		EmbeddingModel string  `yaml:"embedding_model"`
		MaxTokens      int     `yaml:"max_tokens"`
		Temperature    float64 `yaml:"temperature"`
	} `yaml:"openai"`

	Crawler struct {
		StartURL        string   `yaml:"start_url"`
		URLPrefix       string   `yaml:"url_prefix"`
		RateLimit       float64  `yaml:"rate_limit"`
		IgnoreExtension string   `yaml:"ignore_extension"`
		DenySuffixes    []string `yaml:"deny_suffixes"`
	} `yaml:"crawler"`

	Processor struct {
		ChunkSize    int `yaml:"chunk_size"`
		ChunkOverlap int `yaml:"chunk_overlap"`
	} `yaml:"processor"`

	Store struct {
		Backend    string `yaml:"backend"` // "file" or "pgvector"
		DataDir    string `yaml:"data_dir"`
		Collection string `yaml:"collection"`
		VectorDim  int    `yaml:"vector_dim"`
		URL        string `yaml:"url"`
		TableName  string `yaml:"table_name"`
		BatchSize  int    `yaml:"batch_size"`
	} `yaml:"store"`

	Chat struct {
		PromptTemplate string  `yaml:"prompt_template"` // "sources" or "plain"
		TopK           int     `yaml:"top_k"`
		FetchK         int     `yaml:"fetch_k"`
		Lambda         float64 `yaml:"lambda"`
	} `yaml:"chat"`
}

// CollectionDir is the directory holding the persisted index for the
// configured collection. The document cache and the index share the
// single configured data_dir root.
func (c *Config) CollectionDir() string {
	return filepath.Join(c.Store.DataDir, c.Store.Collection)
}

// DocumentCachePath is the serialized document list written by the
// ingestion pipeline.
func (c *Config) DocumentCachePath() string {
	return filepath.Join(c.Store.DataDir, "documents.json")
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/rentagpt/config.yaml"),
			"/etc/rentagpt/config.yaml",
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
	if config.API.Host == "" {
		config.API.Host = "localhost"
	}
	if config.API.Port == 0 {
		config.API.Port = 8000
	}

	if config.OpenAI.Model == "" {
		config.OpenAI.Model = "gpt-3.5-turbo"
	}
	if config.OpenAI.EmbeddingModel == "" {
		config.OpenAI.EmbeddingModel = "text-embedding-ada-002"
	}
	if config.OpenAI.MaxTokens == 0 {
		config.OpenAI.MaxTokens = 500
	}

	if config.Crawler.StartURL == "" {
		config.Crawler.StartURL = "https://sede.agenciatributaria.gob.es/Sede/Ayuda/22Manual/100.html"
	}
	if config.Crawler.URLPrefix == "" {
		config.Crawler.URLPrefix = "https://sede.agenciatributaria.gob.es/Sede/ayuda/manuales-videos-folletos/manuales-practicos/irpf-2022"
	}
	if config.Crawler.RateLimit == 0 {
		config.Crawler.RateLimit = 2.0
	}
	if config.Crawler.IgnoreExtension == "" {
		config.Crawler.IgnoreExtension = ".html"
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 1000
	}
	if config.Processor.ChunkOverlap == 0 {
		config.Processor.ChunkOverlap = 200
	}

	if config.Store.Backend == "" {
		config.Store.Backend = "file"
	}
	if config.Store.DataDir == "" {
		config.Store.DataDir = "data"
	}
	if config.Store.Collection == "" {
		config.Store.Collection = "renta22"
	}
	if config.Store.VectorDim == 0 {
		config.Store.VectorDim = 1536
	}
	if config.Store.TableName == "" {
		config.Store.TableName = "chunks"
	}
	if config.Store.BatchSize == 0 {
		config.Store.BatchSize = 100
	}

	if config.Chat.PromptTemplate == "" {
		config.Chat.PromptTemplate = "sources"
	}
	if config.Chat.TopK == 0 {
		config.Chat.TopK = 4
	}
	if config.Chat.FetchK == 0 {
		config.Chat.FetchK = 20
	}
	if config.Chat.Lambda == 0 {
		config.Chat.Lambda = 0.5
	}
}

func mergeWithEnv(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Store.URL = dbURL
	}
	if dataDir := os.Getenv("RENTAGPT_DATA_DIR"); dataDir != "" {
		config.Store.DataDir = dataDir
	}
}
