// Package config manages the playback advisor configuration with support
// for YAML files, environment overrides, and hot reload.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mediamesh/playadvisor/internal/logger"
)

// Config holds the complete application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server" json:"server"`

	// Database configuration
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Policy engine configuration
	Policy PolicyConfig `yaml:"policy" json:"policy"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host           string        `yaml:"host" json:"host" env:"PLAYADVISOR_HOST" default:"0.0.0.0"`
	Port           int           `yaml:"port" json:"port" env:"PLAYADVISOR_PORT" default:"8080"`
	ReadTimeout    time.Duration `yaml:"read_timeout" json:"read_timeout" env:"PLAYADVISOR_READ_TIMEOUT" default:"30s"`
	WriteTimeout   time.Duration `yaml:"write_timeout" json:"write_timeout" env:"PLAYADVISOR_WRITE_TIMEOUT" default:"30s"`
	EnableCORS     bool          `yaml:"enable_cors" json:"enable_cors" env:"PLAYADVISOR_ENABLE_CORS" default:"true"`
	EnableMetrics  bool          `yaml:"enable_metrics" json:"enable_metrics" env:"PLAYADVISOR_ENABLE_METRICS" default:"true"`
	TrustedProxies []string      `yaml:"trusted_proxies" json:"trusted_proxies"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Type            string        `yaml:"type" json:"type" env:"DATABASE_TYPE" default:"sqlite"`
	DatabasePath    string        `yaml:"database_path" json:"database_path" env:"PLAYADVISOR_DATABASE_PATH" default:"./data/playadvisor.db"`
	Host            string        `yaml:"host" json:"host" env:"POSTGRES_HOST" default:"localhost"`
	Port            int           `yaml:"port" json:"port" env:"POSTGRES_PORT" default:"5432"`
	Username        string        `yaml:"username" json:"username" env:"POSTGRES_USER" default:"playadvisor"`
	Password        string        `yaml:"password" json:"-" env:"POSTGRES_PASSWORD"`
	Database        string        `yaml:"database" json:"database" env:"POSTGRES_DB" default:"playadvisor"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns" env:"DB_MAX_OPEN_CONNS" default:"50"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" default:"2h"`
	LogQueries      bool          `yaml:"log_queries" json:"log_queries" env:"DB_LOG_QUERIES" default:"false"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" env:"PLAYADVISOR_LOG_LEVEL" default:"info"`
	Format string `yaml:"format" json:"format" env:"PLAYADVISOR_LOG_FORMAT" default:"json"`
	Output string `yaml:"output" json:"output" env:"PLAYADVISOR_LOG_OUTPUT" default:"stdout"`
}

// PolicyConfig holds the policy engine and learning loop configuration.
// This is the configuration surface the decision core consumes; it is passed
// explicitly into ComputePolicy and ProcessOutcome rather than read globally.
type PolicyConfig struct {
	// DynamicShaping enables active policy shaping; when false the advisor
	// runs in observe-only mode.
	DynamicShaping bool `yaml:"dynamic_shaping" json:"dynamic_shaping" env:"PLAYADVISOR_DYNAMIC_SHAPING" default:"true"`

	// LearningEnabled gates the outcome-driven confidence updates.
	LearningEnabled bool `yaml:"learning_enabled" json:"learning_enabled" env:"PLAYADVISOR_LEARNING_ENABLED" default:"true"`

	// ConservativeMode biases the advisor toward the neutral default policy.
	// It only short-circuits computation entirely when DynamicShaping is
	// also disabled.
	ConservativeMode bool `yaml:"conservative_mode" json:"conservative_mode" env:"PLAYADVISOR_CONSERVATIVE_MODE" default:"false"`

	// GlobalBitrateCap, when positive, caps recommended bitrate for every
	// client (bits/sec). Zero means no global cap.
	GlobalBitrateCap int64 `yaml:"global_bitrate_cap" json:"global_bitrate_cap" env:"PLAYADVISOR_GLOBAL_BITRATE_CAP" default:"0"`

	// RetentionDays controls how long playback outcomes are kept.
	RetentionDays int `yaml:"retention_days" json:"retention_days" env:"PLAYADVISOR_RETENTION_DAYS" default:"90"`

	// RecalibrationHistory bounds how many recent outcomes a bulk
	// recalibration considers per client.
	RecalibrationHistory int `yaml:"recalibration_history" json:"recalibration_history" env:"PLAYADVISOR_RECALIBRATION_HISTORY" default:"200"`

	// ClientCacheTTL controls the in-memory client profile cache.
	ClientCacheTTL time.Duration `yaml:"client_cache_ttl" json:"client_cache_ttl" env:"PLAYADVISOR_CLIENT_CACHE_TTL" default:"5m"`

	// PruneInterval controls how often the retention pruner runs.
	PruneInterval time.Duration `yaml:"prune_interval" json:"prune_interval" env:"PLAYADVISOR_PRUNE_INTERVAL" default:"6h"`
}

// ConfigManager manages application configuration with hot-reload support
type ConfigManager struct {
	config     *Config
	configPath string
	watchers   []ConfigWatcher
	mu         sync.RWMutex
}

// ConfigWatcher is called when configuration changes
type ConfigWatcher func(oldConfig, newConfig *Config)

var (
	globalConfigManager *ConfigManager
	configOnce          sync.Once
)

// GetConfigManager returns the global configuration manager instance
func GetConfigManager() *ConfigManager {
	configOnce.Do(func() {
		globalConfigManager = NewConfigManager()
	})
	return globalConfigManager
}

// NewConfigManager creates a new configuration manager
func NewConfigManager() *ConfigManager {
	return &ConfigManager{
		config:   DefaultConfig(),
		watchers: make([]ConfigWatcher, 0),
	}
}

// DefaultConfig returns the default application configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "0.0.0.0",
			Port:          8080,
			ReadTimeout:   30 * time.Second,
			WriteTimeout:  30 * time.Second,
			EnableCORS:    true,
			EnableMetrics: true,
		},
		Database: DatabaseConfig{
			Type:            "sqlite",
			DatabasePath:    "./data/playadvisor.db",
			Host:            "localhost",
			Port:            5432,
			Username:        "playadvisor",
			Database:        "playadvisor",
			MaxOpenConns:    50,
			MaxIdleConns:    10,
			ConnMaxLifetime: 2 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Policy: PolicyConfig{
			DynamicShaping:       true,
			LearningEnabled:      true,
			ConservativeMode:     false,
			GlobalBitrateCap:     0,
			RetentionDays:        90,
			RecalibrationHistory: 200,
			ClientCacheTTL:       5 * time.Minute,
			PruneInterval:        6 * time.Hour,
		},
	}
}

// LoadConfig loads configuration from the given path, applying environment
// overrides on top of file values and defaults.
func (cm *ConfigManager) LoadConfig(configPath string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	oldConfig := *cm.config
	cm.configPath = configPath

	newConfig := DefaultConfig()

	if configPath != "" && fileExists(configPath) {
		if err := loadFromFile(configPath, newConfig); err != nil {
			return fmt.Errorf("failed to load config from file: %w", err)
		}
		logger.Info("configuration loaded from file", logger.String("path", configPath))
	}

	if err := loadStructFromEnv(reflect.ValueOf(newConfig).Elem()); err != nil {
		return fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := validateConfig(newConfig); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	cm.config = newConfig

	for _, watcher := range cm.watchers {
		go watcher(&oldConfig, newConfig)
	}

	return nil
}

// GetConfig returns the current configuration (thread-safe)
func (cm *ConfigManager) GetConfig() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	configCopy := *cm.config
	return &configCopy
}

// AddWatcher adds a configuration change watcher
func (cm *ConfigManager) AddWatcher(watcher ConfigWatcher) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.watchers = append(cm.watchers, watcher)
}

// ConfigPath returns the path the configuration was loaded from
func (cm *ConfigManager) ConfigPath() string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.configPath
}

func loadFromFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}
}

func loadStructFromEnv(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := loadStructFromEnv(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue := os.Getenv(envTag)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set field %s: %w", fieldType.Name, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			duration, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(duration))
			return nil
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	default:
		return fmt.Errorf("unsupported field kind: %s", field.Kind())
	}
	return nil
}

func validateConfig(config *Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Database.Type != "sqlite" && config.Database.Type != "postgres" {
		return fmt.Errorf("unsupported database type: %s", config.Database.Type)
	}
	if config.Policy.RetentionDays < 1 {
		return fmt.Errorf("retention_days must be at least 1")
	}
	if config.Policy.RecalibrationHistory < 1 {
		return fmt.Errorf("recalibration_history must be at least 1")
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Convenience functions for accessing the global configuration

// Get returns the current global configuration
func Get() *Config {
	return GetConfigManager().GetConfig()
}

// Load loads the global configuration from the given path
func Load(configPath string) error {
	return GetConfigManager().LoadConfig(configPath)
}

// AddWatcher adds a watcher to the global configuration manager
func AddWatcher(watcher ConfigWatcher) {
	GetConfigManager().AddWatcher(watcher)
}
