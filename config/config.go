package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config holds everything the server needs at startup. Values come from
// environment variables first; an optional YAML file (CONFIG_FILE) can
// override them wholesale.
type Config struct {
	Port        string         `yaml:"port"`
	Env         string         `yaml:"env"`
	FrontendURL string         `yaml:"frontend_url"`
	Database    PostgresConfig `yaml:"database"`
	Auth        AuthConfig     `yaml:"auth"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	Port     string `yaml:"port"`
	SSLMode  string `yaml:"sslmode"`
}

// AuthConfig describes the external identity provider the API trusts.
// Tokens must be RS256, issued by Issuer for Audience, and verifiable with
// the configured RSA public key (inline PEM or a file path).
type AuthConfig struct {
	Issuer        string `yaml:"issuer"`
	Audience      string `yaml:"audience"`
	PublicKeyPEM  string `yaml:"public_key_pem"`
	PublicKeyFile string `yaml:"public_key_file"`
}

// GetEnv fetches an environment variable with a fallback default.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// Load builds the configuration from the environment, then applies the
// optional YAML file on top.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        GetEnv("PORT", "8080"),
		Env:         GetEnv("ENV", "development"),
		FrontendURL: GetEnv("FRONTEND_URL", "http://localhost:5173"),
		Database: PostgresConfig{
			Host:     GetEnv("DB_HOST", "localhost"),
			User:     GetEnv("DB_USER", "postgres"),
			Password: GetEnv("DB_PASSWORD", "password"),
			DBName:   GetEnv("DB_NAME", "recipeplanner"),
			Port:     GetEnv("DB_PORT", "5432"),
			SSLMode:  GetEnv("DB_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			Issuer:        GetEnv("AUTH_ISSUER", ""),
			Audience:      GetEnv("AUTH_AUDIENCE", ""),
			PublicKeyPEM:  GetEnv("AUTH_PUBLIC_KEY", ""),
			PublicKeyFile: GetEnv("AUTH_PUBLIC_KEY_FILE", ""),
		},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if cfg.Auth.PublicKeyPEM == "" && cfg.Auth.PublicKeyFile != "" {
		data, err := os.ReadFile(cfg.Auth.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read auth public key: %w", err)
		}
		cfg.Auth.PublicKeyPEM = string(data)
	}

	return cfg, nil
}

// DSN renders the postgres connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		p.Host, p.User, p.Password, p.DBName, p.Port, p.SSLMode)
}
