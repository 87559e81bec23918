// Package config loads digestbot settings from a YAML file, the environment and defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"digestbot/digest"
)

const configPathEnv = "DIGESTBOT_CONFIG"

// Default configuration values
const (
	DefaultPort          = "8080"
	DefaultDatabasePath  = "./data/library.db"
	DefaultDefinitionKey = "digest-builders/simple-001.json"
	DefaultClientBaseURL = "http://localhost:3000"
	DefaultProvider      = "cohere"
	DefaultCohereModel   = "command-r-plus-08-2024"
	DefaultOpenAIModel   = "gpt-4"
	DefaultOpenAIURL     = "https://api.openai.com/v1/chat/completions"
	DefaultLLMTimeout    = 2 * time.Minute
	DefaultSearchTimeout = 30 * time.Second
	DefaultJobTimeout    = 10 * time.Minute
	DefaultMaxSelections = 10
	DefaultTimezone      = "UTC"
	DefaultCron          = "0 6 * * *"
	DefaultKafkaTopic    = "digest-requests"
	DefaultKafkaGroupID  = "digestbot-consumer-group"
)

// Config holds every setting the service needs.
type Config struct {
	Port          string       `yaml:"port"`
	DatabasePath  string       `yaml:"databasePath"`
	ClientBaseURL string       `yaml:"clientBaseUrl"`
	S3            S3Config     `yaml:"s3"`
	LLM           LLMConfig    `yaml:"llm"`
	Digest        DigestConfig `yaml:"digest"`
	Redis         RedisConfig  `yaml:"redis"`
	Kafka         KafkaConfig  `yaml:"kafka"`
}

// S3Config selects the bucket holding digest definitions.
type S3Config struct {
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	Profile       string `yaml:"profile"`
	UsePathStyle  bool   `yaml:"usePathStyle"`
	DefinitionKey string `yaml:"definitionKey"`
}

// LLMConfig selects and authenticates the language model.
type LLMConfig struct {
	Provider string        `yaml:"provider"`
	APIKey   string        `yaml:"apiKey"`
	Model    string        `yaml:"model"`
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// DigestConfig bounds and schedules digest runs.
type DigestConfig struct {
	MaxSelections int           `yaml:"maxSelections"`
	SearchTimeout time.Duration `yaml:"searchTimeout"`
	JobTimeout    time.Duration `yaml:"jobTimeout"`
	Timezone      string        `yaml:"timezone"`
	Cron          string        `yaml:"cron"`
	Users         []string      `yaml:"users"`
}

// RedisConfig enables the per-user run lock when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// KafkaConfig enables the digest job queue when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"groupId"`
}

// Load reads the optional YAML file named by DIGESTBOT_CONFIG, applies
// environment overrides and fills in defaults.
func Load() (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{}
	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if _, err := time.LoadLocation(cfg.Digest.Timezone); err != nil {
		return nil, fmt.Errorf("invalid DIGEST_TIMEZONE %q: %w", cfg.Digest.Timezone, err)
	}
	switch cfg.LLM.Provider {
	case "cohere", "openai":
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLM.Provider)
	}

	return cfg, nil
}

// Location returns the time zone digest titles are dated in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Digest.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Pipeline returns the configuration injected into the digest pipeline.
func (c *Config) Pipeline() digest.Config {
	return digest.Config{
		ModelAPIKey:   c.LLM.APIKey,
		ModelName:     c.LLM.Model,
		ClientBaseURL: c.ClientBaseURL,
		StorageBucket: c.S3.Bucket,
		DefinitionKey: c.S3.DefinitionKey,
		MaxSelections: c.Digest.MaxSelections,
		SearchTimeout: c.Digest.SearchTimeout,
		LLMTimeout:    c.LLM.Timeout,
		JobTimeout:    c.Digest.JobTimeout,
		Location:      c.Location(),
	}
}

func (c *Config) applyEnvOverrides() error {
	setString(&c.Port, "PORT")
	setString(&c.DatabasePath, "DATABASE_PATH")
	setString(&c.ClientBaseURL, "CLIENT_BASE_URL")

	setString(&c.S3.Bucket, "S3_BUCKET")
	setString(&c.S3.Region, "S3_REGION")
	setString(&c.S3.Profile, "S3_PROFILE")
	setString(&c.S3.DefinitionKey, "DIGEST_DEFINITION_KEY")
	if v := strings.TrimSpace(os.Getenv("S3_USE_PATH_STYLE")); v != "" {
		c.S3.UsePathStyle = strings.EqualFold(v, "true")
	}

	setString(&c.LLM.Provider, "LLM_PROVIDER")
	c.LLM.Provider = strings.ToLower(c.LLM.Provider)
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.LLM.Endpoint, "OPENAI_ENDPOINT")
	setString(&c.LLM.APIKey, "LLM_API_KEY")
	if c.LLM.APIKey == "" {
		if c.LLM.Provider == "openai" {
			setString(&c.LLM.APIKey, "OPENAI_API_KEY")
		} else {
			setString(&c.LLM.APIKey, "COHERE_API_KEY")
		}
	}

	if err := setDuration(&c.LLM.Timeout, "LLM_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&c.Digest.SearchTimeout, "SEARCH_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&c.Digest.JobTimeout, "JOB_TIMEOUT"); err != nil {
		return err
	}
	if err := setInt(&c.Digest.MaxSelections, "MAX_SELECTIONS"); err != nil {
		return err
	}
	setString(&c.Digest.Timezone, "DIGEST_TIMEZONE")
	setString(&c.Digest.Cron, "DIGEST_CRON")
	if v := os.Getenv("DIGEST_USERS"); v != "" {
		c.Digest.Users = splitList(v)
	}

	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASS")
	if err := setInt(&c.Redis.DB, "REDIS_DB"); err != nil {
		return err
	}

	if v := os.Getenv("KAFKA_BOOTSTRAP_SERVERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	setString(&c.Kafka.Topic, "KAFKA_TOPIC_DIGEST_REQUESTS")
	setString(&c.Kafka.GroupID, "KAFKA_CONSUMER_GROUP_ID")
	return nil
}

func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = DefaultPort
	}
	if c.DatabasePath == "" {
		c.DatabasePath = DefaultDatabasePath
	}
	if c.ClientBaseURL == "" {
		c.ClientBaseURL = DefaultClientBaseURL
	}
	c.ClientBaseURL = strings.TrimRight(c.ClientBaseURL, "/")
	if c.S3.DefinitionKey == "" {
		c.S3.DefinitionKey = DefaultDefinitionKey
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = DefaultProvider
	}
	if c.LLM.Model == "" {
		if c.LLM.Provider == "openai" {
			c.LLM.Model = DefaultOpenAIModel
		} else {
			c.LLM.Model = DefaultCohereModel
		}
	}
	if c.LLM.Provider == "openai" && c.LLM.Endpoint == "" {
		c.LLM.Endpoint = DefaultOpenAIURL
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = DefaultLLMTimeout
	}
	if c.Digest.SearchTimeout <= 0 {
		c.Digest.SearchTimeout = DefaultSearchTimeout
	}
	if c.Digest.JobTimeout <= 0 {
		c.Digest.JobTimeout = DefaultJobTimeout
	}
	if c.Digest.MaxSelections <= 0 {
		c.Digest.MaxSelections = DefaultMaxSelections
	}
	if c.Digest.Timezone == "" {
		c.Digest.Timezone = DefaultTimezone
	}
	if c.Digest.Cron == "" {
		c.Digest.Cron = DefaultCron
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = DefaultKafkaTopic
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = DefaultKafkaGroupID
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
