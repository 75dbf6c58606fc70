package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds client and server settings
type Config struct {
	Profile   string `yaml:"profile" json:"profile"`       // Acting identity: me or partner
	ServerURL string `yaml:"server_url" json:"server_url"` // Sync server base URL

	// Server settings
	ListenAddr     string `yaml:"listen_addr" json:"listen_addr"`           // Server bind address
	RedisURL       string `yaml:"redis_url" json:"redis_url"`               // Blob store: redis
	PostgresURL    string `yaml:"postgres_url" json:"postgres_url"`         // Blob store: postgres fallback
	PushPublicKey  string `yaml:"push_public_key" json:"push_public_key"`   // VAPID public key
	PushPrivateKey string `yaml:"push_private_key" json:"push_private_key"` // VAPID private key
	PushSubject    string `yaml:"push_subject" json:"push_subject"`         // VAPID subject (mailto:)
	DispatchSecret string `yaml:"dispatch_secret" json:"dispatch_secret"`   // Bearer secret for dispatch endpoint

	// Logging configuration
	LogLevel   string `yaml:"log_level" json:"log_level"`     // Log level: DEBUG, INFO, WARN, ERROR
	LogFile    string `yaml:"log_file" json:"log_file"`       // Path to log file
	LogConsole bool   `yaml:"log_console" json:"log_console"` // Enable console logging
}

// DefaultConfig returns default settings
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	logPath := ""
	if home != "" {
		logPath = filepath.Join(home, ".ourday", "logs", "ourday.log")
	}

	return &Config{
		Profile:        getEnv("OURDAY_PROFILE", "me"),
		ServerURL:      getEnv("OURDAY_SERVER_URL", "http://localhost:8080"),
		ListenAddr:     getEnv("OURDAY_LISTEN_ADDR", ":8080"),
		RedisURL:       getEnv("OURDAY_REDIS_URL", ""),
		PostgresURL:    getEnv("OURDAY_POSTGRES_URL", ""),
		PushPublicKey:  getEnv("OURDAY_PUSH_PUBLIC_KEY", ""),
		PushPrivateKey: getEnv("OURDAY_PUSH_PRIVATE_KEY", ""),
		PushSubject:    getEnv("OURDAY_PUSH_SUBJECT", "mailto:hello@ourday.app"),
		DispatchSecret: getEnv("OURDAY_DISPATCH_SECRET", ""),
		LogLevel:       getEnv("OURDAY_LOG_LEVEL", "INFO"),
		LogFile:        getEnv("OURDAY_LOG_FILE", logPath),
		LogConsole:     getEnv("OURDAY_LOG_CONSOLE", "false") == "true",
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Load loads config from ~/.ourday/config.yaml
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(home, ".ourday", "config.yaml")

	// Check if exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Return defaults if no config
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Save saves config to ~/.ourday/config.yaml
func (c *Config) Save() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configDir := filepath.Join(home, ".ourday")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
