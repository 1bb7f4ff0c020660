package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tradelake/datamanager/store"
)

// Config is the service configuration. Secrets and deployment-specific values
// can be overridden through the environment so the yaml file stays checked in.
type Config struct {
	Service ServiceConfig  `yaml:"service"`
	S3      store.S3Config `yaml:"s3"`
	Massive MassiveConfig  `yaml:"massive"`
}

type ServiceConfig struct {
	Name                string `yaml:"name"`
	Port                int    `yaml:"port"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
}

type MassiveConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// LoadConfig reads the yaml config, applies environment overrides and
// defaults, and validates required fields.
func LoadConfig(path string) (*Config, error) {
	config := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnv()
	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("AWS_S3_DATA_BUCKET_NAME"); v != "" {
		c.S3.Bucket = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.S3.Region = v
	}
	if v := os.Getenv("MASSIVE_BASE_URL"); v != "" {
		c.Massive.BaseURL = v
	}
	if v := os.Getenv("MASSIVE_API_KEY"); v != "" {
		c.Massive.APIKey = v
	}
}

func (c *Config) applyDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = "datamanager"
	}
	if c.Service.Port == 0 {
		c.Service.Port = 8080
	}
	if c.Service.ReadTimeoutSeconds == 0 {
		c.Service.ReadTimeoutSeconds = 30
	}
	if c.Service.WriteTimeoutSeconds == 0 {
		c.Service.WriteTimeoutSeconds = 60
	}
}

func (c *Config) validate() error {
	if c.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required (or AWS_S3_DATA_BUCKET_NAME)")
	}
	if c.S3.Region == "" {
		return fmt.Errorf("s3.region is required (or AWS_REGION)")
	}
	if c.Massive.BaseURL == "" {
		return fmt.Errorf("massive.base_url is required (or MASSIVE_BASE_URL)")
	}
	return nil
}
