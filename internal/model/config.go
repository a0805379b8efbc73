package model

import "time"

// SchemaVersion tags cache keys; bump it whenever the Artifact shape changes.
const SchemaVersion = "v3"

// Config is the complete newsbrief configuration.
type Config struct {
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Generation   GenerationConfig   `yaml:"generation" mapstructure:"generation"`
	Relevance    RelevanceConfig    `yaml:"relevance" mapstructure:"relevance"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
}

// LLMConfig selects and configures the generation gateway.
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, "" (disabled)
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	HTTPProxy   string  `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy  string  `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy     string  `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// GenerationConfig controls one generation cycle.
type GenerationConfig struct {
	ItemCount   int           `yaml:"item_count" mapstructure:"item_count"`
	MaxArticles int           `yaml:"max_articles" mapstructure:"max_articles"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// RelevanceConfig holds the thematic re-ranking weights.
type RelevanceConfig struct {
	TopK               int     `yaml:"top_k" mapstructure:"top_k"`
	SimilarityFloor    float64 `yaml:"similarity_floor" mapstructure:"similarity_floor"`
	CategoryBonus      float64 `yaml:"category_bonus" mapstructure:"category_bonus"`
	EntityBonus        float64 `yaml:"entity_bonus" mapstructure:"entity_bonus"`
	TitleOverlapWeight float64 `yaml:"title_overlap_weight" mapstructure:"title_overlap_weight"`
	DuplicateThreshold float64 `yaml:"duplicate_threshold" mapstructure:"duplicate_threshold"`
	DuplicatePenalty   float64 `yaml:"duplicate_penalty" mapstructure:"duplicate_penalty"`
	MinScore           float64 `yaml:"min_score" mapstructure:"min_score"`
}

// CacheConfig configures both cache tiers.
type CacheConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryCapacity int           `yaml:"memory_capacity" mapstructure:"memory_capacity"`
	Freshness      time.Duration `yaml:"freshness" mapstructure:"freshness"`
	Backend        string        `yaml:"backend" mapstructure:"backend"` // disk, sqlite, mysql, redis, none
	Dir            string        `yaml:"dir" mapstructure:"dir"`
	DSN            string        `yaml:"dsn,omitempty" mapstructure:"dsn"`
	RedisURL       string        `yaml:"redis_url,omitempty" mapstructure:"redis_url"`
}

// ConcurrencyConfig bounds parallel work.
type ConcurrencyConfig struct {
	Workers        int `yaml:"workers" mapstructure:"workers"`
	RelatedLookups int `yaml:"related_lookups" mapstructure:"related_lookups"`
}

// RateLimitingConfig throttles gateway calls.
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// LoggingConfig selects the log level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text, json
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "",
			Timeout:     60,
			MaxTokens:   4000,
			Temperature: 0.3,
		},
		Generation: GenerationConfig{
			ItemCount:   DefaultItemCount,
			MaxArticles: 50,
			Timeout:     90 * time.Second,
		},
		Relevance: RelevanceConfig{
			TopK:               3,
			SimilarityFloor:    0.2,
			CategoryBonus:      0.2,
			EntityBonus:        0.3,
			TitleOverlapWeight: 0.15,
			DuplicateThreshold: 0.9,
			DuplicatePenalty:   0.5,
			MinScore:           0.3,
		},
		Cache: CacheConfig{
			Enabled:        true,
			MemoryCapacity: 10,
			Freshness:      time.Hour,
			Backend:        "sqlite",
			Dir:            "~/.newsbrief/cache",
		},
		Concurrency: ConcurrencyConfig{
			Workers:        4,
			RelatedLookups: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 1,
			BurstSize:         2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
