package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"github.com/sadopc/timeledger/internal/engine"
	"github.com/sadopc/timeledger/internal/log"
)

const appName = "timeledger"

type Config struct {
	DatabasePath    string   `toml:"database_path"`
	LogLevel        string   `toml:"log_level"`
	Timezone        string   `toml:"timezone"`
	WeekStart       string   `toml:"week_start"`
	Currency        string   `toml:"currency"`
	TaxRate         string   `toml:"tax_rate"`
	DefaultRate     string   `toml:"default_rate"`
	AveragePolicy   string   `toml:"average_policy"`
	UnassignedLabel string   `toml:"unassigned_label"`
	ColorByHash     bool     `toml:"color_by_hash"`
	Palette         []string `toml:"palette"`
}

func DefaultConfig() *Config {
	dbPath := filepath.Join(".", appName+".db")
	if dir, err := Dir(); err == nil {
		dbPath = filepath.Join(dir, appName+".db")
	}
	return &Config{
		DatabasePath:    dbPath,
		LogLevel:        "info",
		Timezone:        "Local",
		WeekStart:       "monday",
		Currency:        "JPY",
		TaxRate:         "0.10",
		AveragePolicy:   string(engine.AverageNonEmpty),
		UnassignedLabel: "Not set",
	}
}

// Dir returns ~/.config/timeledger (or the platform equivalent).
func Dir() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, appName), nil
}

// DefaultPath returns the config file location inside Dir.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the TOML file at path, writing one with defaults when it does
// not exist yet, then applies TIMELEDGER_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := Save(path, cfg); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
	} else if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.DatabasePath = expandPath(cfg.DatabasePath)
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

func (c *Config) applyEnv() {
	c.DatabasePath = getEnv("TIMELEDGER_DB_PATH", c.DatabasePath)
	c.LogLevel = getEnv("TIMELEDGER_LOG_LEVEL", c.LogLevel)
	c.Timezone = getEnv("TIMELEDGER_TIMEZONE", c.Timezone)
	c.Currency = getEnv("TIMELEDGER_CURRENCY", c.Currency)
	c.TaxRate = getEnv("TIMELEDGER_TAX_RATE", c.TaxRate)
	c.DefaultRate = getEnv("TIMELEDGER_DEFAULT_RATE", c.DefaultRate)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.DatabasePath) == "" {
		problems = append(problems, "database path cannot be empty")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}
	if ws := strings.ToLower(c.WeekStart); ws != "monday" && ws != "sunday" {
		problems = append(problems, fmt.Sprintf("invalid week start '%s': must be monday or sunday", c.WeekStart))
	}
	if _, err := c.Tax(); err != nil {
		problems = append(problems, fmt.Sprintf("invalid tax rate '%s': %v", c.TaxRate, err))
	}
	if _, _, err := c.FallbackRate(); err != nil {
		problems = append(problems, fmt.Sprintf("invalid default rate '%s': %v", c.DefaultRate, err))
	}
	if _, err := engine.ParseAveragePolicy(c.AveragePolicy); err != nil {
		problems = append(problems, fmt.Sprintf("invalid average policy '%s': must be non_empty or calendar", c.AveragePolicy))
	}
	if n := len(c.Palette); n > 0 && n < 10 {
		problems = append(problems, fmt.Sprintf("palette has %d colors: must have at least 10", n))
	}
	for _, color := range c.Palette {
		if !strings.HasPrefix(color, "#") {
			problems = append(problems, fmt.Sprintf("invalid palette color '%s': must be a hex color", color))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// Calendar builds the bucket calendar shared by grouping and comparison.
func (c *Config) Calendar() (engine.Calendar, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return engine.Calendar{}, fmt.Errorf("load timezone: %w", err)
	}
	return engine.Calendar{
		Location:    loc,
		SundayFirst: strings.EqualFold(c.WeekStart, "sunday"),
	}, nil
}

// Tax parses the tax rate as a fraction (0.10 for 10%).
func (c *Config) Tax() (decimal.Decimal, error) {
	if strings.TrimSpace(c.TaxRate) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, engine.ErrNegativeRate
	}
	return d, nil
}

// FallbackRate returns the configured default hourly rate, if any.
func (c *Config) FallbackRate() (decimal.Decimal, bool, error) {
	if strings.TrimSpace(c.DefaultRate) == "" {
		return decimal.Zero, false, nil
	}
	d, err := decimal.NewFromString(c.DefaultRate)
	if err != nil {
		return decimal.Zero, false, err
	}
	if d.IsNegative() {
		return decimal.Zero, false, engine.ErrNegativeRate
	}
	return d, true, nil
}

func (c *Config) Policy() engine.AveragePolicy {
	return engine.AveragePolicy(c.AveragePolicy)
}

func (c *Config) ChartPalette() engine.Palette {
	if len(c.Palette) == 0 {
		return engine.DefaultPalette
	}
	return engine.Palette(c.Palette)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
