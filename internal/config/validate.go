package config

import (
	"errors"
	"fmt"
)

// Validate checks the loaded configuration for values that would make a
// command fail in a confusing way later.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}

	switch c.Tagging.Provider {
	case "openai":
		if c.Tagging.OpenaiApiKey == "" {
			return errors.New("tagging.openai_api_key (or OPENAI_API_KEY) is required for the openai provider")
		}
	case "gemini":
		if c.Tagging.GoogleApiKey == "" {
			return errors.New("tagging.google_api_key (or GEMINI_API_KEY) is required for the gemini provider")
		}
	default:
		return fmt.Errorf("unknown tagging provider: %q", c.Tagging.Provider)
	}

	if c.Tagging.BatchSize <= 0 {
		return errors.New("tagging.batch_size must be a positive integer")
	}
	if c.Tagging.ConfidenceThreshold < 0 || c.Tagging.ConfidenceThreshold > 1 {
		return fmt.Errorf("tagging.confidence_threshold (%v) must be in [0, 1]", c.Tagging.ConfidenceThreshold)
	}
	if c.Tagging.MaxAttempts <= 0 {
		return errors.New("tagging.max_attempts must be a positive integer")
	}

	if c.Similarity.MinConfidence < 0 || c.Similarity.MinConfidence > 1 {
		return fmt.Errorf("similarity.min_confidence (%v) must be in [0, 1]", c.Similarity.MinConfidence)
	}

	if c.MapGen.MaxAttempts <= 0 {
		return errors.New("mapgen.max_attempts must be a positive integer")
	}

	if c.Cache.Enabled {
		if c.Cache.TTLSeconds <= 0 {
			return errors.New("cache.ttl_seconds must be positive when the cache is enabled")
		}
		if c.Cache.MaxEntries <= 0 {
			return errors.New("cache.max_entries must be positive when the cache is enabled")
		}
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.WindowSeconds <= 0 {
			return errors.New("ratelimit.window_seconds must be positive when rate limiting is enabled")
		}
		if c.RateLimit.MaxRequests <= 0 {
			return errors.New("ratelimit.max_requests must be positive when rate limiting is enabled")
		}
	}

	if c.Worker.Concurrency <= 0 {
		return errors.New("worker.concurrency must be a positive integer")
	}
	for name, priority := range c.Worker.Queues {
		if name == "" {
			return errors.New("worker.queues contains an empty queue name")
		}
		if priority <= 0 {
			return fmt.Errorf("worker.queues priority for queue '%s' must be positive", name)
		}
	}

	return nil
}
