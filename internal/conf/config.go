package conf

import (
	"errors"
	"fmt"
	"time"

	"github.com/ringbrew/gsv/config"
)

type Config struct {
	Env           string        `yaml:"environment"`
	Debug         bool          `yaml:"debug"`
	Host          string        `yaml:"host"`
	Port          int           `yaml:"port"`
	LogLevel      string        `yaml:"logLevel"`
	Mongo         Mongo         `yaml:"mongo"`
	Redis         Redis         `yaml:"redis"`
	Milvus        Milvus        `yaml:"milvus"`
	OpenAI        OpenAI        `yaml:"openAI"`
	ElasticSearch ElasticSearch `yaml:"elasticSearch"`
	Search        Search        `yaml:"search"`
	RateLimit     RateLimit     `yaml:"rateLimit"`
	Seed          string        `yaml:"seed"`
	ForceRebuild  bool          `yaml:"forceRebuild"`
}

type Mongo struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type Redis struct {
	Host     string `yaml:"host"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Milvus struct {
	Endpoint string `yaml:"endpoint"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       string `yaml:"db"`
}

type OpenAI struct {
	Endpoint       string `yaml:"endpoint"`
	Token          string `yaml:"token"`
	EmbeddingModel string `yaml:"embeddingModel"`
	ChatModel      string `yaml:"chatModel"`
}

type ElasticSearch struct {
	Address  []string `yaml:"address"`
	UserName string   `yaml:"userName"`
	Password string   `yaml:"password"`
	Index    string   `yaml:"index"`
}

// Search tunes the retrieval pipeline. Zero values fall back to defaults.
type Search struct {
	SimilarityFloor    float64 `yaml:"similarityFloor"`
	EmbeddingTimeoutMs int     `yaml:"embeddingTimeoutMs"`
	IndexTimeoutMs     int     `yaml:"indexTimeoutMs"`
	LLMTimeoutMs       int     `yaml:"llmTimeoutMs"`
	RecommendTopN      int     `yaml:"recommendTopN"`
	DefaultLimit       int     `yaml:"defaultLimit"`
	MaxLimit           int     `yaml:"maxLimit"`
	DisableNormalize   bool    `yaml:"disableNormalize"`
	DisableRecommend   bool    `yaml:"disableRecommend"`
}

func (s Search) EmbeddingTimeout() time.Duration {
	return time.Duration(s.EmbeddingTimeoutMs) * time.Millisecond
}

func (s Search) IndexTimeout() time.Duration {
	return time.Duration(s.IndexTimeoutMs) * time.Millisecond
}

func (s Search) LLMTimeout() time.Duration {
	return time.Duration(s.LLMTimeoutMs) * time.Millisecond
}

type RateLimit struct {
	Enabled     bool  `yaml:"enabled"`
	IntervalSec int64 `yaml:"intervalSec"`
	Limit       int64 `yaml:"limit"`
}

func Load(path string) (Config, error) {
	var result Config
	loader := config.NewLoader(config.LoaderTypeYml, path)
	if err := loader.Load(&result); err != nil {
		return Config{}, err
	}

	result.ApplyDefaults()

	if err := result.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return result, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Env == "" {
		c.Env = "dev"
	}
	if c.Port == 0 {
		c.Port = 4000
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "e-commerce"
	}
	if c.Mongo.Collection == "" {
		c.Mongo.Collection = "products"
	}
	if c.Milvus.DB == "" {
		c.Milvus.DB = "ecommerce"
	}
	if c.OpenAI.EmbeddingModel == "" {
		c.OpenAI.EmbeddingModel = "AdaEmbeddingV2"
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = "gpt-4o"
	}
	if c.ElasticSearch.Index == "" {
		c.ElasticSearch.Index = "ecommerce_product_index"
	}
	if c.Search.EmbeddingTimeoutMs <= 0 {
		c.Search.EmbeddingTimeoutMs = 5000
	}
	if c.Search.IndexTimeoutMs <= 0 {
		c.Search.IndexTimeoutMs = 3000
	}
	if c.Search.LLMTimeoutMs <= 0 {
		c.Search.LLMTimeoutMs = 8000
	}
	if c.Search.RecommendTopN <= 0 {
		c.Search.RecommendTopN = 5
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 10
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = 50
	}
	if c.RateLimit.IntervalSec <= 0 {
		c.RateLimit.IntervalSec = 10
	}
	if c.RateLimit.Limit <= 0 {
		c.RateLimit.Limit = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.Mongo.URI == "" {
		return errors.New("mongo.uri is required")
	}
	if c.Search.SimilarityFloor < 0 || c.Search.SimilarityFloor > 1 {
		return fmt.Errorf("search.similarityFloor must be within [0,1], got %v", c.Search.SimilarityFloor)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.defaultLimit %d exceeds search.maxLimit %d", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	return nil
}
