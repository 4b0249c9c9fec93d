package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables holding the Firefly III connection secrets. They are
// never read from the YAML file.
const (
	EnvFireflyHost  = "FIREFLY_III_HOST"
	EnvFireflyToken = "FIREFLY_III_ACCESS_TOKEN"
)

// Config is the top-level fireflybt.yaml configuration.
type Config struct {
	Firefly FireflyConfig `yaml:"firefly"`
	Server  ServerConfig  `yaml:"server"`
	Import  ImportConfig  `yaml:"import"`
}

// FireflyConfig identifies the ledger instance. Token only ever comes from
// the environment.
type FireflyConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"-"`
}

// ServerConfig controls the WebSocket bridge.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// ImportConfig controls the batch importer.
type ImportConfig struct {
	Format  string `yaml:"format"`
	LogRoot string `yaml:"log_root"`
}

// Load reads a fireflybt.yaml file from disk and applies the environment on
// top of it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyEnv()
	return cfg, nil
}

// FromEnv returns a Config built from defaults plus the environment, for
// runs without a config file.
func FromEnv() *Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8000",
		},
		Import: ImportConfig{
			Format:  "bt",
			LogRoot: ".",
		},
	}
}

// applyEnv loads a .env file when present and overrides the connection
// settings from the environment.
func (c *Config) applyEnv() {
	_ = godotenv.Load()

	if host := os.Getenv(EnvFireflyHost); host != "" {
		c.Firefly.URL = host
	}
	if token := os.Getenv(EnvFireflyToken); token != "" {
		c.Firefly.Token = token
	}
}

// Validate checks that the ledger connection is configured.
func (c *Config) Validate() error {
	if c.Firefly.URL == "" {
		return fmt.Errorf("firefly URL is not set (config firefly.url or %s)", EnvFireflyHost)
	}
	if c.Firefly.Token == "" {
		return fmt.Errorf("firefly access token is not set (%s)", EnvFireflyToken)
	}
	return nil
}
