package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudx-io/assetauction/core"
)

// Config is the daemon configuration, read from AUCTIOND_* environment variables.
type Config struct {
	// Listen is "vsock:<port>" or "tcp:<host:port>".
	Listen     string
	MaxWorkers int
	Engine     core.Config

	DataDir     string
	GenesisPath string
	HTTPAddr    string

	KafkaBrokers []string
	KafkaTopic   string

	Attest bool
}

func LoadConfig() (Config, error) {
	var cfg Config
	var err error

	cfg.MaxWorkers, err = getRequiredEnvInt("AUCTIOND_MAX_WORKERS")
	if err != nil {
		return Config{}, err
	}
	if cfg.MaxWorkers <= 0 {
		return Config{}, fmt.Errorf("AUCTIOND_MAX_WORKERS must be positive, got %d", cfg.MaxWorkers)
	}

	escrow, err := getRequiredEnv("AUCTIOND_ESCROW")
	if err != nil {
		return Config{}, err
	}
	feeRecipient, err := getRequiredEnv("AUCTIOND_FEE_RECIPIENT")
	if err != nil {
		return Config{}, err
	}
	cfg.Engine = core.DefaultConfig(core.Address(escrow), core.Address(feeRecipient))

	feeBPS, err := getEnvInt("AUCTIOND_FEE_BPS", core.DefaultFeeBPS)
	if err != nil {
		return Config{}, err
	}
	if feeBPS < 0 || feeBPS > core.BPSDenominator {
		return Config{}, fmt.Errorf("AUCTIOND_FEE_BPS must be within [0, %d], got %d", core.BPSDenominator, feeBPS)
	}
	cfg.Engine.FeeBPS = uint32(feeBPS)

	if cfg.Engine.MinDuration, err = getEnvDuration("AUCTIOND_MIN_DURATION", core.DefaultMinDuration); err != nil {
		return Config{}, err
	}
	if cfg.Engine.MaxDuration, err = getEnvDuration("AUCTIOND_MAX_DURATION", core.DefaultMaxDuration); err != nil {
		return Config{}, err
	}
	if err := cfg.Engine.Validate(); err != nil {
		return Config{}, fmt.Errorf("engine config: %w", err)
	}

	cfg.Listen = getEnv("AUCTIOND_LISTEN", "vsock:5000")
	if _, _, err := parseListen(cfg.Listen); err != nil {
		return Config{}, err
	}

	cfg.DataDir = getEnv("AUCTIOND_DATA_DIR", "")
	cfg.GenesisPath = getEnv("AUCTIOND_GENESIS", "")
	cfg.HTTPAddr = getEnv("AUCTIOND_HTTP_ADDR", "")
	cfg.KafkaTopic = getEnv("AUCTIOND_KAFKA_TOPIC", "")
	if brokers := getEnv("AUCTIOND_KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	if cfg.KafkaTopic != "" && len(cfg.KafkaBrokers) == 0 {
		return Config{}, fmt.Errorf("AUCTIOND_KAFKA_TOPIC is set but AUCTIOND_KAFKA_BROKERS is empty")
	}

	if cfg.Attest, err = getEnvBool("AUCTIOND_ATTEST", false); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// parseListen splits a listen address into its network and address parts.
func parseListen(listen string) (network, addr string, err error) {
	network, addr, ok := strings.Cut(listen, ":")
	if !ok || addr == "" {
		return "", "", fmt.Errorf("invalid AUCTIOND_LISTEN %q (want vsock:<port> or tcp:<host:port>)", listen)
	}
	switch network {
	case "vsock":
		if _, err := strconv.ParseUint(addr, 10, 32); err != nil {
			return "", "", fmt.Errorf("invalid vsock port %q: %w", addr, err)
		}
	case "tcp":
	default:
		return "", "", fmt.Errorf("unsupported listen network %q", network)
	}
	return network, addr, nil
}

func getRequiredEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}
	return value, nil
}

// Helper function for required environment variable parsing
func getRequiredEnvInt(key string) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, fmt.Errorf("required environment variable %s is not set", key)
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %s (must be a valid integer)", key, value)
	}

	log.Printf("INFO: Using %s=%d from environment", key, intValue)
	return intValue, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %s (must be a valid integer)", key, value)
	}
	return intValue, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %s (must be a duration such as 2h)", key, value)
	}
	return d, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %s (must be true or false)", key, value)
	}
	return b, nil
}
