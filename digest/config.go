package digest

import (
	"errors"
	"time"
)

// Config is the injected configuration of the pipeline.
type Config struct {
	ModelAPIKey   string
	ModelName     string
	ClientBaseURL string
	StorageBucket string
	DefinitionKey string

	// MaxSelections caps how many resolved selections reach the assembly prompt.
	MaxSelections int
	SearchTimeout time.Duration
	LLMTimeout    time.Duration
	JobTimeout    time.Duration
	// Location dates the digest title.
	Location *time.Location
}

// Default bounds
const (
	DefaultMaxSelections = 10
	DefaultSearchTimeout = 30 * time.Second
	DefaultLLMTimeout    = 2 * time.Minute
	DefaultJobTimeout    = 10 * time.Minute
)

func applyConfigDefaults(cfg Config) Config {
	if cfg.MaxSelections <= 0 {
		cfg.MaxSelections = DefaultMaxSelections
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = DefaultSearchTimeout
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = DefaultLLMTimeout
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultJobTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return cfg
}

func (c Config) validate() error {
	if c.ClientBaseURL == "" {
		return errors.New("client base url is required")
	}
	return nil
}
