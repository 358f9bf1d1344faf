// Package config provides configuration management for the ledger server.
// It loads configuration from environment variables and .env files, plus an
// optional YAML file describing the two parties.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/mmynk/divvy/internal/models"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	Kafka   KafkaConfig
	Gemini  GeminiConfig
	Log     LogConfig
	Parties Parties
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port       int
	StaticPath string
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Driver string
	Path   string
	URL    string
}

// KafkaConfig enables change events when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// GeminiConfig enables receipt analysis when APIKey is set.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// PartyProfile is how a party is shown and paid.
type PartyProfile struct {
	Name   string `yaml:"name"`
	Handle string `yaml:"handle"`
}

// Parties maps each party to its profile.
type Parties map[models.Party]PartyProfile

// Name returns the display name for p, falling back to the party letter.
func (ps Parties) Name(p models.Party) string {
	if profile, ok := ps[p]; ok && profile.Name != "" {
		return profile.Name
	}
	return string(p)
}

// Names returns display names keyed by party.
func (ps Parties) Names() map[models.Party]string {
	names := make(map[models.Party]string, len(models.Parties))
	for _, p := range models.Parties {
		names[p] = ps.Name(p)
	}
	return names
}

// Handles returns payment-app handles keyed by party.
func (ps Parties) Handles() map[models.Party]string {
	handles := make(map[models.Party]string, len(ps))
	for p, profile := range ps {
		if profile.Handle != "" {
			handles[p] = profile.Handle
		}
	}
	return handles
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	port, err := parseIntEnv("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	timeout, err := parseDurationEnv("RECEIPT_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid RECEIPT_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:       port,
			StaticPath: os.Getenv("STATIC_PATH"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getEnvOrDefault("DB_DRIVER", DriverSQLite)),
			Path:   getEnvOrDefault("DB_PATH", "./data/divvy.db"),
			URL:    os.Getenv("DATABASE_URL"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnvOrDefault("KAFKA_TOPIC", "ledger_changed"),
		},
		Gemini: GeminiConfig{
			APIKey:  os.Getenv("GEMINI_API_KEY"),
			Model:   getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
			Timeout: timeout,
		},
		Log: LogConfig{
			Level:  os.Getenv("LOG_LEVEL"),
			Format: os.Getenv("LOG_FORMAT"),
		},
		Parties: Parties{},
	}

	if path := os.Getenv("PARTIES_FILE"); path != "" {
		parties, err := LoadParties(path)
		if err != nil {
			return nil, err
		}
		cfg.Parties = parties
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected store has what it needs.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverBolt:
		if c.Store.Path == "" {
			return fmt.Errorf("DB_PATH is required for the %s driver", c.Store.Driver)
		}
	case DriverPostgres:
		if c.Store.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q (want sqlite, bolt or postgres)", c.Store.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT %d out of range", c.Server.Port)
	}
	return nil
}

type partiesFile struct {
	Parties map[string]PartyProfile `yaml:"parties"`
}

// LoadParties reads party profiles from a YAML file:
//
//	parties:
//	  A: {name: Ana, handle: ana-p}
//	  B: {name: Ben, handle: ben_q}
func LoadParties(path string) (Parties, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading parties file: %w", err)
	}

	var file partiesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing parties file: %w", err)
	}

	parties := make(Parties, len(file.Parties))
	for key, profile := range file.Parties {
		p, err := models.ParseParty(strings.ToUpper(key))
		if err != nil {
			return nil, fmt.Errorf("parsing parties file: %w", err)
		}
		parties[p] = profile
	}
	return parties, nil
}

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
