package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/table-seating/internal/invoice"
	"github.com/eugenenazirov/table-seating/internal/registry"
)

const (
	defaultPort                   = "8080"
	defaultLogLevel               = "info"
	defaultRateLimitRPS           = 25.0
	defaultRateLimitBurst         = 50
	defaultMutationRateLimitRPS   = 5.0
	defaultMutationRateLimitBurst = 10
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string        `yaml:"port"`
	TableCapacities      []int         `yaml:"tables"`
	InvoiceDir           string        `yaml:"invoice_dir"`
	LogLevel             string        `yaml:"log_level"`
	ShutdownGracePeriod  time.Duration `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    time.Duration `yaml:"read_header_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	IdleTimeout          time.Duration `yaml:"idle_timeout"`
	EnableRequestLogging bool          `yaml:"enable_request_logging"`
	RateLimitRPS         float64       `yaml:"-"`
	RateLimitBurst       int           `yaml:"-"`

	// Mutation limits apply to allocations, table edits and invoice uploads
	// in addition to the shared limit.
	MutationRateLimitRPS   float64 `yaml:"-"`
	MutationRateLimitBurst int     `yaml:"-"`
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	Tables               []int         `yaml:"tables"`
	InvoiceDir           string        `yaml:"invoice_dir"`
	LogLevel             string        `yaml:"log_level"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS           *float64 `yaml:"rps"`
	Burst         *int     `yaml:"burst"`
	MutationRPS   *float64 `yaml:"mutation_rps"`
	MutationBurst *int     `yaml:"mutation_burst"`
}

// envConfig lists the supported environment variables.
type envConfig struct {
	Port                   string   `env:"PORT"`
	TableCapacities        string   `env:"TABLE_CAPACITIES"`
	InvoiceDir             string   `env:"INVOICE_DIR"`
	LogLevel               string   `env:"LOG_LEVEL"`
	RateLimitRPS           *float64 `env:"RATE_LIMIT_RPS"`
	RateLimitBurst         *int     `env:"RATE_LIMIT_BURST"`
	MutationRateLimitRPS   *float64 `env:"RATE_LIMIT_MUTATION_RPS"`
	MutationRateLimitBurst *int     `env:"RATE_LIMIT_MUTATION_BURST"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	TablesStr      *string
	InvoiceDir     *string
	LogLevel       *string
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	if overrides != nil {
		if err := applyCLIOverrides(&cfg, overrides); err != nil {
			return Config{}, err
		}
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		TableCapacities:      registry.DefaultCapacities(),
		InvoiceDir:           invoice.DefaultBaseDir,
		LogLevel:             defaultLogLevel,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,

		MutationRateLimitRPS:   defaultMutationRateLimitRPS,
		MutationRateLimitBurst: defaultMutationRateLimitBurst,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	if len(yamlCfg.Tables) > 0 {
		cfg.TableCapacities = slices.Clone(yamlCfg.Tables)
	}

	if yamlCfg.InvoiceDir != "" {
		cfg.InvoiceDir = yamlCfg.InvoiceDir
	}

	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}

	durations := []struct {
		name   string
		raw    string
		target *time.Duration
	}{
		{"shutdown_grace_period", yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", yamlCfg.IdleTimeout, &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		value, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.target = value
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}

	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	if yamlCfg.RateLimit.MutationRPS != nil {
		cfg.MutationRateLimitRPS = *yamlCfg.RateLimit.MutationRPS
	}

	if yamlCfg.RateLimit.MutationBurst != nil {
		cfg.MutationRateLimitBurst = *yamlCfg.RateLimit.MutationBurst
	}

	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) error {
	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if port := strings.TrimSpace(ec.Port); port != "" {
		cfg.Port = port
	}

	if raw := strings.TrimSpace(ec.TableCapacities); raw != "" {
		capacities, err := parseCapacities(raw)
		if err != nil {
			return fmt.Errorf("TABLE_CAPACITIES: %w", err)
		}
		cfg.TableCapacities = capacities
	}

	if dir := strings.TrimSpace(ec.InvoiceDir); dir != "" {
		cfg.InvoiceDir = dir
	}

	if level := strings.TrimSpace(ec.LogLevel); level != "" {
		cfg.LogLevel = level
	}

	if ec.RateLimitRPS != nil {
		cfg.RateLimitRPS = *ec.RateLimitRPS
	}

	if ec.RateLimitBurst != nil {
		cfg.RateLimitBurst = *ec.RateLimitBurst
	}

	if ec.MutationRateLimitRPS != nil {
		cfg.MutationRateLimitRPS = *ec.MutationRateLimitRPS
	}

	if ec.MutationRateLimitBurst != nil {
		cfg.MutationRateLimitBurst = *ec.MutationRateLimitBurst
	}

	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) error {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.TablesStr != nil && *overrides.TablesStr != "" {
		capacities, err := parseCapacities(*overrides.TablesStr)
		if err != nil {
			return fmt.Errorf("parse table capacities: %w", err)
		}
		cfg.TableCapacities = capacities
	}

	if overrides.InvoiceDir != nil && *overrides.InvoiceDir != "" {
		cfg.InvoiceDir = *overrides.InvoiceDir
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	return nil
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if cfg.MutationRateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_MUTATION_RPS must be >= 0")
	}
	if cfg.MutationRateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_MUTATION_BURST must be >= 0")
	}
	if len(cfg.TableCapacities) == 0 {
		return fmt.Errorf("table capacities cannot be empty")
	}
	for i, capacity := range cfg.TableCapacities {
		if capacity < 0 {
			return fmt.Errorf("table %d capacity must be >= 0, got %d", i+1, capacity)
		}
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	return nil
}

// parseCapacities parses a comma-separated list of seat counts, one per
// table in identity order. A position is a table number, so only a single
// trailing comma may be left empty.
func parseCapacities(raw string) ([]int, error) {
	parts := strings.Split(strings.TrimSpace(raw), ",")
	if len(parts) > 1 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	capacities := make([]int, 0, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			if len(parts) == 1 {
				break
			}
			return nil, fmt.Errorf("table %d has no capacity", i+1)
		}
		value, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", part)
		}
		if value < 0 {
			return nil, fmt.Errorf("capacity must be non-negative, got %d", value)
		}
		capacities = append(capacities, value)
	}
	if len(capacities) == 0 {
		return nil, fmt.Errorf("no table capacities provided")
	}
	return capacities, nil
}
