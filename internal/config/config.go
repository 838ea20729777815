package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// PricingInfo holds cost details per token for a specific model.
type PricingInfo struct {
	InputPerToken  float64 `mapstructure:"input_per_token"`
	OutputPerToken float64 `mapstructure:"output_per_token"`
}

type Config struct {
	Database struct {
		Path string `mapstructure:"path"` // SQLite file for jobs, cache, usage logs
	} `mapstructure:"database"`

	Tagging struct {
		Provider            string  `mapstructure:"provider"` // "openai" or "gemini"
		Model               string  `mapstructure:"model"`
		OpenaiApiKey        string  `mapstructure:"openai_api_key"`
		GoogleApiKey        string  `mapstructure:"google_api_key"`
		BatchSize           int     `mapstructure:"batch_size"`
		ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
		AdaptiveThreshold   bool    `mapstructure:"adaptive_threshold"`
		PromptTemplate      string  `mapstructure:"prompt_template"` // Path to prompt template file or the template itself
		MaxAttempts         int     `mapstructure:"max_attempts"`
	} `mapstructure:"tagging"`

	Similarity struct {
		MinConfidence float64 `mapstructure:"min_confidence"`
	} `mapstructure:"similarity"`

	MapGen struct {
		Model          string `mapstructure:"model"`
		MaxAttempts    int    `mapstructure:"max_attempts"`
		PromptTemplate string `mapstructure:"prompt_template"`
	} `mapstructure:"mapgen"`

	Cache struct {
		Enabled    bool `mapstructure:"enabled"`
		TTLSeconds int  `mapstructure:"ttl_seconds"`
		MaxEntries int  `mapstructure:"max_entries"`
	} `mapstructure:"cache"`

	Server struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"server"`

	RateLimit struct {
		Enabled       bool `mapstructure:"enabled"`
		WindowSeconds int  `mapstructure:"window_seconds"`
		MaxRequests   int  `mapstructure:"max_requests"`
	} `mapstructure:"ratelimit"`

	Redis struct {
		Address  string `mapstructure:"address"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Worker struct {
		Concurrency int            `mapstructure:"concurrency"`
		Queues      map[string]int `mapstructure:"queues"`
	} `mapstructure:"worker"`

	// Pricing: map[provider][model] = struct{input_per_token, output_per_token}
	Pricing map[string]map[string]PricingInfo `mapstructure:"pricing"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/tiletagger")

	setDefaults()

	// Allow Viper to read environment variables. The API keys are the
	// settings most commonly supplied this way.
	viper.AutomaticEnv()
	viper.BindEnv("tagging.openai_api_key", "OPENAI_API_KEY")
	viper.BindEnv("tagging.google_api_key", "GEMINI_API_KEY")

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env vars still apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// setDefaults mirrors the tunables the original server shipped with.
func setDefaults() {
	viper.SetDefault("database.path", "tiletagger.db")

	viper.SetDefault("tagging.provider", "openai")
	viper.SetDefault("tagging.model", "gpt-4o-mini")
	viper.SetDefault("tagging.batch_size", 16)
	viper.SetDefault("tagging.confidence_threshold", 0.5)
	viper.SetDefault("tagging.adaptive_threshold", false)
	viper.SetDefault("tagging.max_attempts", 3)

	viper.SetDefault("similarity.min_confidence", 0.7)

	viper.SetDefault("mapgen.model", "gpt-4o-mini")
	viper.SetDefault("mapgen.max_attempts", 3)

	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.ttl_seconds", 3600)
	viper.SetDefault("cache.max_entries", 1000)

	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8000)

	viper.SetDefault("ratelimit.enabled", true)
	viper.SetDefault("ratelimit.window_seconds", 60)
	viper.SetDefault("ratelimit.max_requests", 100)

	viper.SetDefault("redis.address", "localhost:6379")

	viper.SetDefault("worker.concurrency", 2)
	viper.SetDefault("worker.queues", map[string]int{"analysis": 5})
}
