package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/etnz/coown/broker"
	"gopkg.in/yaml.v3"
)

// Config is the content of the configuration file.
type Config struct {
	// Book is the book directory.
	Book     string `yaml:"book"`
	LogLevel string `yaml:"log_level"`
	// Broker configures the import of broker exports.
	Broker BrokerConfig `yaml:"broker"`
}

// BrokerConfig configures the broker importer.
type BrokerConfig struct {
	Selector string `yaml:"selector"`
}

// DefaultConfig is used when there is no configuration file, and completes the one there is.
func DefaultConfig() Config {
	return Config{
		Book:     ".",
		LogLevel: "info",
		Broker:   BrokerConfig{Selector: broker.DefaultSelector},
	}
}

// LoadConfig reads a YAML configuration file. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid configuration %q: %w", path, err)
	}
	// empty values in the file keep their default.
	def := DefaultConfig()
	if cfg.Book == "" {
		cfg.Book = def.Book
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.Broker.Selector == "" {
		cfg.Broker.Selector = def.Broker.Selector
	}
	return cfg, nil
}
