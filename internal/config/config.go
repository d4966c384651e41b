// Package config loads the service configuration from YAML, .env files and the
// process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Environment variables recognized as overrides.
const (
	EnvConfigPath  = "PAYDA_CONFIG"
	EnvListenAddr  = "PAYDA_LISTEN_ADDR"
	EnvDatabaseDSN = "PAYDA_DATABASE_DSN"
	EnvJWTSecret   = "PAYDA_JWT_SECRET"
	EnvJWTExpiry   = "PAYDA_JWT_EXPIRY"
	EnvRedisAddr   = "PAYDA_REDIS_ADDR"
	EnvRedisPass   = "PAYDA_REDIS_PASSWORD"
	EnvRedisDB     = "PAYDA_REDIS_DB"
	EnvLogLevel    = "PAYDA_LOG_LEVEL"
	EnvLogFile     = "PAYDA_LOG_FILE"
)

// DefaultConfigPath is used when neither a flag nor PAYDA_CONFIG names a file.
const DefaultConfigPath = "config.yaml"

// AppConfig carries command-line inputs shared by every command.
type AppConfig struct {
	ConfigPath string
}

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown-timeout"`
}

// DatabaseConfig configures the data store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// JWTConfig configures bearer tokens.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// RedisConfig configures the shared idempotency store. An empty Addr keeps
// idempotency keys in process memory.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LoggingConfig configures log level and optional file rotation.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server:   ServerConfig{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		Database: DatabaseConfig{DSN: "data/payda.db"},
		JWT:      JWTConfig{Expiry: 24 * time.Hour},
		Logging:  LoggingConfig{Level: "info", MaxSizeMB: 50, MaxBackups: 5, MaxAgeDays: 30},
	}
}

// ResolveConfigPath picks the config file path: explicit flag, then PAYDA_CONFIG,
// then config.yaml in the working directory.
func ResolveConfigPath(flagValue string) string {
	if p := strings.TrimSpace(flagValue); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return DefaultConfigPath
}

// ConfigExists reports whether path names a regular file.
func ConfigExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// LoadEnv loads .env files from the working directory, later files overriding earlier ones.
func LoadEnv() {
	for _, file := range []string{".env", ".env.local"} {
		if _, errStat := os.Stat(file); errStat != nil {
			continue
		}
		if errLoad := godotenv.Overload(file); errLoad != nil {
			log.WithError(errLoad).Warnf("config: failed to load %s", file)
		}
	}
}

// Load reads path on top of the defaults and applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	raw, errRead := os.ReadFile(path)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(raw, &cfg); errUnmarshal != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
		}
	case errors.Is(errRead, os.ErrNotExist):
		log.Debugf("config: %s not found, using defaults", path)
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, errRead)
	}
	if errEnv := applyEnv(&cfg); errEnv != nil {
		return nil, errEnv
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString(EnvListenAddr, &cfg.Server.Addr)
	setString(EnvDatabaseDSN, &cfg.Database.DSN)
	setString(EnvJWTSecret, &cfg.JWT.Secret)
	setString(EnvRedisAddr, &cfg.Redis.Addr)
	setString(EnvRedisPass, &cfg.Redis.Password)
	setString(EnvLogLevel, &cfg.Logging.Level)
	setString(EnvLogFile, &cfg.Logging.File)

	if v := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); v != "" {
		d, errParse := time.ParseDuration(v)
		if errParse != nil {
			return fmt.Errorf("config: %s: %w", EnvJWTExpiry, errParse)
		}
		cfg.JWT.Expiry = d
	}
	if v := strings.TrimSpace(os.Getenv(EnvRedisDB)); v != "" {
		n, errParse := strconv.Atoi(v)
		if errParse != nil {
			return fmt.Errorf("config: %s: %w", EnvRedisDB, errParse)
		}
		cfg.Redis.DB = n
	}
	return nil
}

// LoadDatabaseDSN returns the configured DSN or an error when none is set.
func LoadDatabaseDSN(path string) (string, error) {
	cfg, err := Load(path)
	if err != nil {
		return "", err
	}
	dsn := strings.TrimSpace(cfg.Database.DSN)
	if dsn == "" {
		return "", fmt.Errorf("config: database dsn is empty")
	}
	return dsn, nil
}

// LoadJWTConfig returns the token settings. An empty secret is reported as an
// error; callers may still fall back to an ephemeral secret.
func LoadJWTConfig(path string) (JWTConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return JWTConfig{}, err
	}
	if cfg.JWT.Expiry <= 0 {
		cfg.JWT.Expiry = 24 * time.Hour
	}
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return cfg.JWT, fmt.Errorf("config: jwt secret is empty")
	}
	return cfg.JWT, nil
}
