package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	GitHub  GitHubConfig  `yaml:"github"`
	Storage StorageConfig `yaml:"storage"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	BaseURL        string        `yaml:"base_url"`
	Secret         string        `yaml:"secret" env:"GATEWAY_SECRET"`
	CookieName     string        `yaml:"cookie_name"`
	CookieDomain   string        `yaml:"cookie_domain"`
	CookieSecure   bool          `yaml:"cookie_secure"`
	CookieSameSite string        `yaml:"cookie_same_site"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	StateTTL       time.Duration `yaml:"state_ttl"`
}

type GitHubConfig struct {
	ClientID     string        `yaml:"client_id" env:"GITHUB_OAUTH_CLIENT_ID"`
	ClientSecret string        `yaml:"client_secret" env:"GITHUB_OAUTH_SECRET"`
	Org          string        `yaml:"org" env:"GITHUB_ORG"`
	Scopes       []string      `yaml:"scopes"`
	AuthURL      string        `yaml:"auth_url"`
	TokenURL     string        `yaml:"token_url"`
	APIURL       string        `yaml:"api_url"`
	Timeout      time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	Bucket      string        `yaml:"bucket" env:"AWS_S3_BUCKET"`
	Region      string        `yaml:"region" env:"AWS_REGION"`
	KeyRoot     string        `yaml:"key_root"`
	Window      time.Duration `yaml:"window"`
	MinSize     int64         `yaml:"min_size"`
	MaxSize     int64         `yaml:"max_size"`
	EndpointURL string        `yaml:"endpoint_url"`
}

type CacheConfig struct {
	Type  string       `yaml:"type"`
	Redis *RedisConfig `yaml:"redis,omitempty"`
}

type RedisConfig struct {
	Address    string `yaml:"address"`
	Password   string `yaml:"password" env:"REDIS_PASSWORD"`
	DB         int    `yaml:"db"`
	PoolSize   int    `yaml:"pool_size"`
	MaxRetries int    `yaml:"max_retries"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	SNSTopicARN string `yaml:"sns_topic_arn" env:"AWS_SNS_ARN"`
}

const (
	defaultKeyRoot = "cache/uploads"
	defaultMinSize = 16
	defaultMaxSize = 600 * 1024 * 1024
)

var defaultScopes = []string{"user", "public_repo", "read:org"}

// Load reads the YAML file at path, fills defaults and overlays secrets from
// the environment. An empty path skips the file and configures from the
// environment alone.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.loadSecretsFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load secrets from environment: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.CookieName == "" {
		c.Server.CookieName = "upload-gate-session"
	}
	if c.Server.CookieSameSite == "" {
		c.Server.CookieSameSite = "lax"
	}
	if c.Server.SessionTTL == 0 {
		c.Server.SessionTTL = 24 * time.Hour
	}
	if c.Server.StateTTL == 0 {
		c.Server.StateTTL = 10 * time.Minute
	}
	// The OAuth secret signs gateway cookies too unless a dedicated one is set.
	if c.Server.Secret == "" {
		c.Server.Secret = c.GitHub.ClientSecret
	}

	if len(c.GitHub.Scopes) == 0 {
		c.GitHub.Scopes = append([]string(nil), defaultScopes...)
	}
	if c.GitHub.AuthURL == "" {
		c.GitHub.AuthURL = "https://github.com/login/oauth/authorize"
	}
	if c.GitHub.TokenURL == "" {
		c.GitHub.TokenURL = "https://github.com/login/oauth/access_token"
	}
	if c.GitHub.APIURL == "" {
		c.GitHub.APIURL = "https://api.github.com"
	}
	if c.GitHub.Timeout == 0 {
		c.GitHub.Timeout = 10 * time.Second
	}

	if c.Storage.Region == "" {
		c.Storage.Region = "us-east-1"
	}
	if c.Storage.KeyRoot == "" {
		c.Storage.KeyRoot = defaultKeyRoot
	}
	if c.Storage.Window == 0 {
		c.Storage.Window = 5 * time.Minute
	}
	if c.Storage.MinSize == 0 {
		c.Storage.MinSize = defaultMinSize
	}
	if c.Storage.MaxSize == 0 {
		c.Storage.MaxSize = defaultMaxSize
	}

	if c.Cache.Type == "" {
		c.Cache.Type = "memory"
	}
	if c.Cache.Type == "redis" && c.Cache.Redis != nil {
		if c.Cache.Redis.PoolSize == 0 {
			c.Cache.Redis.PoolSize = 10
		}
		if c.Cache.Redis.MaxRetries == 0 {
			c.Cache.Redis.MaxRetries = 3
		}
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// loadSecretsFromEnv overrides fields tagged with env only when the variable
// is present.
func (c *Config) loadSecretsFromEnv() error {
	if err := env.Parse(&c.Server); err != nil {
		return err
	}
	if err := env.Parse(&c.GitHub); err != nil {
		return err
	}
	if err := env.Parse(&c.Storage); err != nil {
		return err
	}
	if err := env.Parse(&c.Logging); err != nil {
		return err
	}

	if c.Cache.Redis != nil {
		if err := env.Parse(c.Cache.Redis); err != nil {
			return err
		}
	}

	return nil
}
