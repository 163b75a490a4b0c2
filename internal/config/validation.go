package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const minSecretLen = 16

func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.validateGitHub(); err != nil {
		return fmt.Errorf("github config: %w", err)
	}

	if err := c.validateStorage(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := c.validateCache(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}

	if err := c.validateLogging(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Server.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}

	u, err := url.Parse(c.Server.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url must be absolute: %s", c.Server.BaseURL)
	}

	if len(c.Server.Secret) < minSecretLen {
		return fmt.Errorf("secret must be at least %d characters", minSecretLen)
	}

	sameSite := strings.ToLower(c.Server.CookieSameSite)
	if sameSite != "lax" && sameSite != "strict" && sameSite != "none" {
		return fmt.Errorf("invalid cookie_same_site: %s (must be lax, strict, or none)", c.Server.CookieSameSite)
	}

	if c.Server.SessionTTL < time.Minute {
		return fmt.Errorf("session_ttl must be at least 1 minute")
	}

	if c.Server.StateTTL < 0 {
		return fmt.Errorf("state_ttl must not be negative")
	}

	return nil
}

func (c *Config) validateGitHub() error {
	if c.GitHub.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}

	if c.GitHub.ClientSecret == "" {
		return fmt.Errorf("client_secret is required")
	}

	if c.GitHub.Org == "" {
		return fmt.Errorf("org is required")
	}

	for name, raw := range map[string]string{
		"auth_url":  c.GitHub.AuthURL,
		"token_url": c.GitHub.TokenURL,
		"api_url":   c.GitHub.APIURL,
	} {
		if _, err := url.ParseRequestURI(raw); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	if c.GitHub.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}

	if strings.Trim(c.Storage.KeyRoot, "/") == "" {
		return fmt.Errorf("key_root is required")
	}

	if c.Storage.Window <= 0 {
		return fmt.Errorf("window must be positive")
	}

	if c.Storage.MinSize < 0 || c.Storage.MaxSize <= c.Storage.MinSize {
		return fmt.Errorf("invalid size range: %d-%d", c.Storage.MinSize, c.Storage.MaxSize)
	}

	if c.Storage.EndpointURL != "" {
		if _, err := url.ParseRequestURI(c.Storage.EndpointURL); err != nil {
			return fmt.Errorf("invalid endpoint_url: %w", err)
		}
	}

	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Type != "memory" && c.Cache.Type != "redis" {
		return fmt.Errorf("invalid type: %s (must be memory or redis)", c.Cache.Type)
	}

	if c.Cache.Type == "redis" {
		if c.Cache.Redis == nil {
			return fmt.Errorf("redis config is required when type is redis")
		}
		if c.Cache.Redis.Address == "" {
			return fmt.Errorf("redis address is required")
		}
	}

	return nil
}

func (c *Config) validateLogging() error {
	level := strings.ToLower(c.Logging.Level)
	if level != "debug" && level != "info" && level != "warn" && level != "error" {
		return fmt.Errorf("invalid level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	format := strings.ToLower(c.Logging.Format)
	if format != "json" && format != "text" {
		return fmt.Errorf("invalid format: %s (must be json or text)", c.Logging.Format)
	}

	if c.Logging.SNSTopicARN != "" && !strings.HasPrefix(c.Logging.SNSTopicARN, "arn:") {
		return fmt.Errorf("invalid sns_topic_arn: %s", c.Logging.SNSTopicARN)
	}

	return nil
}
