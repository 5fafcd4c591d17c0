package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RateLimitTier is one counting window of the tiered rate limit policy.
type RateLimitTier struct {
	Name   string        `yaml:"name"`
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// DefaultRateLimitTiers allow 3 requests a second, 20 per 10 seconds and 100 a minute.
var DefaultRateLimitTiers = []RateLimitTier{
	{Name: "short", Limit: 3, Window: time.Second},
	{Name: "medium", Limit: 20, Window: 10 * time.Second},
	{Name: "long", Limit: 100, Window: time.Minute},
}

type Config struct {
	App struct {
		Env string `yaml:"env"`
	} `yaml:"app"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	// Auth holds the credentials callers must present.
	Auth struct {
		User     string `yaml:"user"`
		Password string `yaml:"password"`
	} `yaml:"auth"`
	// Upstream is the processor API every command is forwarded to.
	Upstream struct {
		URL      string        `yaml:"url"`
		User     string        `yaml:"user"`
		Password string        `yaml:"password"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"upstream"`
	RateLimit struct {
		Tiers []RateLimitTier `yaml:"tiers"`
	} `yaml:"rate_limit"`
	Redis struct {
		Addr string `yaml:"addr"`
	} `yaml:"redis"`
	Kafka struct {
		BootstrapServers string `yaml:"bootstrap_servers"`
		Topic            string `yaml:"topic"`
	} `yaml:"kafka"`
	OTLP struct {
		Endpoint string `yaml:"endpoint"`
	} `yaml:"otlp"`
}

// Load reads the YAML file (if present), expands ${VAR} references, applies environment
// overrides and defaults, and validates the result.
func Load(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		// First, we substitute environment variables into the raw YAML file.
		expandedFile := os.ExpandEnv(string(file))
		if err := yaml.Unmarshal([]byte(expandedFile), config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// environment only
	default:
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config.applyEnv()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnv lets the well-known variables win over the file.
func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	set(&c.App.Env, "APP_ENV")
	set(&c.Server.Port, "PORT")
	set(&c.Upstream.URL, "API_URL")
	set(&c.Auth.User, "USER")
	set(&c.Auth.Password, "PASS")
	set(&c.Redis.Addr, "REDIS_ADDR")
	set(&c.Kafka.BootstrapServers, "KAFKA_BOOTSTRAP_SERVERS")
	set(&c.OTLP.Endpoint, "OTLP_ENDPOINT")
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "production"
	}
	if c.Server.Port == "" {
		c.Server.Port = "3000"
	}
	// the upstream shares the inbound credentials unless told otherwise
	if c.Upstream.User == "" {
		c.Upstream.User = c.Auth.User
	}
	if c.Upstream.Password == "" {
		c.Upstream.Password = c.Auth.Password
	}
	if c.Upstream.Timeout <= 0 {
		c.Upstream.Timeout = 10 * time.Second
	}
	if len(c.RateLimit.Tiers) == 0 {
		c.RateLimit.Tiers = append([]RateLimitTier(nil), DefaultRateLimitTiers...)
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "food.commands"
	}
}

// Validate reports configuration the gateway cannot start with.
func (c *Config) Validate() error {
	var problems []string
	if c.Upstream.URL == "" {
		problems = append(problems, "API_URL is not defined")
	}
	if c.Auth.User == "" || c.Auth.Password == "" {
		problems = append(problems, "USER and PASS must be set")
	}
	for _, t := range c.RateLimit.Tiers {
		if t.Limit <= 0 || t.Window <= 0 {
			problems = append(problems, fmt.Sprintf("rate limit tier %q needs a positive limit and window", t.Name))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	if strings.Contains(c.Server.Port, ":") {
		return c.Server.Port
	}
	return ":" + c.Server.Port
}
