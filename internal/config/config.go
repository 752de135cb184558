// Package config loads bridge configuration from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8080"`

	// GitLab inbound
	GitlabWebhookSecret string `envconfig:"GITLAB_WEBHOOK_SECRET"`
	// AllowUnverified accepts token-bearing requests without a configured
	// secret. Development only — never enable in production.
	AllowUnverified   bool   `envconfig:"ALLOW_UNVERIFIED" default:"false"`
	ProtectedBranches string `envconfig:"PROTECTED_BRANCHES" default:"production,staging,pre-production"`

	// Lark outbound. Used when a request carries no X-Lark-Url / X-Lark-Secret
	// headers; headers always win.
	LarkWebhookURL    string        `envconfig:"LARK_WEBHOOK_URL"`
	LarkWebhookSecret string        `envconfig:"LARK_WEBHOOK_SECRET"`
	DeliveryTimeout   time.Duration `envconfig:"DELIVERY_TIMEOUT" default:"10s"`

	// HTTP server
	MaxBodyBytes   int `envconfig:"MAX_BODY_BYTES" default:"1048576"`
	RateLimitRPS   int `envconfig:"RATE_LIMIT_RPS" default:"100"`
	RateLimitBurst int `envconfig:"RATE_LIMIT_BURST" default:"200"`
}

// VerificationConfigured returns true if an inbound webhook secret is set.
func (c *Config) VerificationConfigured() bool {
	return c.GitlabWebhookSecret != ""
}

// DefaultDestinationConfigured returns true if a fallback Lark webhook URL is set.
func (c *Config) DefaultDestinationConfigured() bool {
	return c.LarkWebhookURL != ""
}

// ProtectedBranchList returns the parsed deny-list of branch names.
func (c *Config) ProtectedBranchList() []string {
	if c.ProtectedBranches == "" {
		return nil
	}
	parts := strings.Split(c.ProtectedBranches, ",")
	branches := make([]string, 0, len(parts))
	for _, b := range parts {
		b = strings.TrimSpace(b)
		if b != "" {
			branches = append(branches, b)
		}
	}
	return branches
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}
