package config

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseDSN         string
	ServerAddr          string
	SigningKey          []byte
	AllowedOrigins      []string
	RequireCodeLanguage bool
}

// fileConfig is the YAML representation of a config file. Values from the
// file act as defaults; flags override them.
type fileConfig struct {
	ServerAddr          string   `yaml:"server_addr"`
	DatabaseDSN         string   `yaml:"database_dsn"`
	SigningKey          string   `yaml:"signing_key"`
	AllowedOrigins      []string `yaml:"allowed_origins"`
	RequireCodeLanguage *bool    `yaml:"require_code_language"`
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

// LoadDotEnv loads a .env file into the process environment if one exists.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	return godotenv.Load(path)
}

func NewConfig(serverAddr, databaseDSN, base64Secret string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		DatabaseDSN:         databaseDSN,
		ServerAddr:          serverAddr,
		SigningKey:          signingKey,
		AllowedOrigins:      allowedOrigins,
		RequireCodeLanguage: true,
	}, nil
}

// Overrides carries values explicitly set on the command line; set fields
// take precedence over the config file.
type Overrides struct {
	ServerAddr     *string
	DatabaseDSN    *string
	SigningKey     *string
	AllowedOrigins []string
}

// FromFile builds a Config from a YAML file, applying any overrides on top
// of the file's values.
func FromFile(path string, ov Overrides) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if ov.ServerAddr != nil {
		fc.ServerAddr = *ov.ServerAddr
	}
	if ov.DatabaseDSN != nil {
		fc.DatabaseDSN = *ov.DatabaseDSN
	}
	if ov.SigningKey != nil {
		fc.SigningKey = *ov.SigningKey
	}
	if len(ov.AllowedOrigins) > 0 {
		fc.AllowedOrigins = ov.AllowedOrigins
	}

	cfg, err := NewConfig(fc.ServerAddr, fc.DatabaseDSN, fc.SigningKey, fc.AllowedOrigins)
	if err != nil {
		return nil, err
	}

	if fc.RequireCodeLanguage != nil {
		cfg.RequireCodeLanguage = *fc.RequireCodeLanguage
	}

	return cfg, nil
}
