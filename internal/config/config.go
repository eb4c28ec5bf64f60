package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models boardflow.yml.
type Config struct {
	Site struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"site"`
	Engine struct {
		StepTimeoutSeconds int `yaml:"step_timeout_seconds"`
		MaxConcurrentRules int `yaml:"max_concurrent_rules"`
	} `yaml:"engine"`
	Scheduler struct {
		IntervalSeconds int `yaml:"interval_seconds"`
		DueSoonDays     int `yaml:"due_soon_days"`
	} `yaml:"scheduler"`
	Auth struct {
		JWTSecret              string `yaml:"jwt_secret"`
		AllowLegacyActorHeader bool   `yaml:"allow_legacy_actor_header"`
	} `yaml:"auth"`
	SMTP struct {
		Host                 string `yaml:"host"`
		Port                 int    `yaml:"port"`
		From                 string `yaml:"from"`
		Username             string `yaml:"username"`
		Password             string `yaml:"password"`
		FlushIntervalSeconds int    `yaml:"flush_interval_seconds"`
	} `yaml:"smtp"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig declares one outbound webhook fed from the event log.
type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Secret         string   `yaml:"secret"`
	Events         []string `yaml:"events"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Enabled        *bool    `yaml:"enabled"`
}

// StepTimeout returns the per-action timeout with the default applied.
func (c *Config) StepTimeout() time.Duration {
	if c.Engine.StepTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Engine.StepTimeoutSeconds) * time.Second
}

// MaxConcurrentRules returns the fan-out limit with the default applied.
func (c *Config) MaxConcurrentRules() int {
	if c.Engine.MaxConcurrentRules <= 0 {
		return 8
	}
	return c.Engine.MaxConcurrentRules
}

// SchedulerInterval returns the tick interval with the default applied.
func (c *Config) SchedulerInterval() time.Duration {
	if c.Scheduler.IntervalSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Scheduler.IntervalSeconds) * time.Second
}

// DueSoonDays returns the card_due_soon horizon with the default applied.
func (c *Config) DueSoonDays() int {
	if c.Scheduler.DueSoonDays <= 0 {
		return 2
	}
	return c.Scheduler.DueSoonDays
}

// SMTPEnabled reports whether an outbound mail relay is configured.
func (c *Config) SMTPEnabled() bool {
	return c.SMTP.Host != ""
}

// SMTPAddr returns the relay address with the default port applied.
func (c *Config) SMTPAddr() string {
	port := c.SMTP.Port
	if port <= 0 {
		port = 587
	}
	return fmt.Sprintf("%s:%d", c.SMTP.Host, port)
}

// SMTPFrom returns the sender address with a fallback applied.
func (c *Config) SMTPFrom() string {
	if c.SMTP.From == "" {
		return "boardflow@localhost"
	}
	return c.SMTP.From
}

// MailFlushInterval returns the outbox flush cadence with the default
// applied.
func (c *Config) MailFlushInterval() time.Duration {
	if c.SMTP.FlushIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.SMTP.FlushIntervalSeconds) * time.Second
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Engine.StepTimeoutSeconds < 0 {
		return fmt.Errorf("engine.step_timeout_seconds must not be negative")
	}
	if c.Engine.MaxConcurrentRules < 0 {
		return fmt.Errorf("engine.max_concurrent_rules must not be negative")
	}
	if c.Scheduler.IntervalSeconds < 0 {
		return fmt.Errorf("scheduler.interval_seconds must not be negative")
	}
	if c.SMTP.Port < 0 {
		return fmt.Errorf("smtp.port must not be negative")
	}
	for i, hook := range c.Webhooks {
		if hook.URL == "" {
			return fmt.Errorf("webhooks[%d].url is required", i)
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "boardflow.yml")
}

// Load reads and validates config from workspace. A missing file yields the
// defaults rather than an error; the engine must run unconfigured.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GenerateDefault returns default config YAML for bf init.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `site:
  base_url: http://localhost:8080

engine:
  step_timeout_seconds: 30
  max_concurrent_rules: 8

scheduler:
  interval_seconds: 60
  due_soon_days: 2

auth:
  jwt_secret: ""
  allow_legacy_actor_header: true

smtp:
  host: ""
  port: 587
  from: ""
  username: ""
  password: ""
  flush_interval_seconds: 30

webhooks: []
`
