package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"DailyInvestTrade/internal/ledger"
	"DailyInvestTrade/internal/pricefeed"
	"DailyInvestTrade/internal/schedule"
	"DailyInvestTrade/internal/session"
)

// DefaultPath is used when CONFIG_PATH is unset.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Schedule struct {
		Timezone string              `yaml:"timezone"`
		Days     []string            `yaml:"days"`
		Hours    []schedule.HourSpec `yaml:"hours"`
	} `yaml:"schedule"`
	Price struct {
		TickInterval time.Duration `yaml:"tick_interval"`
		Min          float64       `yaml:"min"`
		Max          float64       `yaml:"max"`
		MaxStep      float64       `yaml:"max_step"`
	} `yaml:"price"`
	Session struct {
		MaxTrades     int           `yaml:"max_trades"`
		Timeout       time.Duration `yaml:"timeout"`
		PersistTrades bool          `yaml:"persist_trades"`
	} `yaml:"session"`
	Ledger struct {
		DepositAmount         float64 `yaml:"deposit_amount"`
		CodePrefix            string  `yaml:"code_prefix"`
		CodeCount             int     `yaml:"code_count"`
		MinWithdrawal         float64 `yaml:"min_withdrawal"`
		MaxWithdrawal         float64 `yaml:"max_withdrawal"`
		MaxWithdrawalsPerWeek int     `yaml:"max_withdrawals_per_week"`
		WithdrawalResetCron   string  `yaml:"withdrawal_reset_cron"`
		TelephonePattern      string  `yaml:"telephone_pattern"`
	} `yaml:"ledger"`
	Storage struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
	} `yaml:"storage"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Receipt struct {
		OutputDir string `yaml:"output_dir"`
		Size      int    `yaml:"size"`
	} `yaml:"receipt"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
	Console struct {
		CommandsPerSecond float64 `yaml:"commands_per_second"`
	} `yaml:"console"`
}

// Default returns the demo market: four trading days with three sessions each.
func Default() *Config {
	cfg := &Config{}
	cfg.Schedule.Timezone = "Local"
	cfg.Schedule.Days = []string{"Monday", "Tuesday", "Thursday", "Saturday"}
	cfg.Schedule.Hours = []schedule.HourSpec{
		{Start: "09:00", End: "12:00"},
		{Start: "15:00", End: "18:00"},
		{Start: "21:00", End: "23:59"},
	}

	cfg.Price.TickInterval = 90 * time.Second
	cfg.Price.Min = 0
	cfg.Price.Max = 100
	cfg.Price.MaxStep = 2

	cfg.Session.MaxTrades = 6
	cfg.Session.Timeout = 15 * time.Minute

	cfg.Ledger.DepositAmount = 20
	cfg.Ledger.CodePrefix = "DPT"
	cfg.Ledger.CodeCount = 100
	cfg.Ledger.MinWithdrawal = 40
	cfg.Ledger.MaxWithdrawal = 200
	cfg.Ledger.MaxWithdrawalsPerWeek = 2
	cfg.Ledger.TelephonePattern = `^\+232\d{8}$`

	cfg.Storage.Driver = "file"
	cfg.Storage.Path = "data/ledger.json"

	cfg.Receipt.OutputDir = "data/receipts"
	cfg.Receipt.Size = 256

	cfg.Log.Level = "info"
	cfg.Log.MaxSizeMB = 10
	cfg.Log.MaxBackups = 3
	cfg.Log.MaxAgeDays = 28

	cfg.Console.CommandsPerSecond = 5
	return cfg
}

// Load reads config from a YAML file over the defaults, then applies
// environment variable overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("MARKET_TIMEZONE"); v != "" {
		cfg.Schedule.Timezone = v
	}
	if v := os.Getenv("PRICE_TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("PRICE_TICK_INTERVAL: %w", err)
		}
		cfg.Price.TickInterval = d
	}
	if v := os.Getenv("PERSIST_TRADES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("PERSIST_TRADES: %w", err)
		}
		cfg.Session.PersistTrades = b
	}
	if v := os.Getenv("WITHDRAWAL_RESET_CRON"); v != "" {
		cfg.Ledger.WithdrawalResetCron = v
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("RECEIPT_DIR"); v != "" {
		cfg.Receipt.OutputDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Log.File = v
	}

	return cfg, nil
}

var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks that every section is usable.
func (c *Config) Validate() error {
	if _, err := c.MarketSchedule(); err != nil {
		return err
	}
	if c.Price.TickInterval <= 0 {
		return fmt.Errorf("price.tick_interval must be positive")
	}
	if c.Price.Min < 0 || c.Price.Min >= c.Price.Max {
		return fmt.Errorf("price.min must be >= 0 and below price.max")
	}
	if c.Price.MaxStep < 0 {
		return fmt.Errorf("price.max_step must not be negative")
	}
	if c.Session.MaxTrades <= 0 {
		return fmt.Errorf("session.max_trades must be positive")
	}
	if c.Session.Timeout <= 0 {
		return fmt.Errorf("session.timeout must be positive")
	}
	if c.Ledger.DepositAmount <= 0 {
		return fmt.Errorf("ledger.deposit_amount must be positive")
	}
	if c.Ledger.CodeCount <= 0 || c.Ledger.CodePrefix == "" {
		return fmt.Errorf("ledger.code_prefix and ledger.code_count are required")
	}
	if c.Ledger.MinWithdrawal <= 0 || c.Ledger.MinWithdrawal > c.Ledger.MaxWithdrawal {
		return fmt.Errorf("ledger.min_withdrawal must be positive and not above ledger.max_withdrawal")
	}
	if c.Ledger.MaxWithdrawalsPerWeek < 0 {
		return fmt.Errorf("ledger.max_withdrawals_per_week must not be negative")
	}
	if _, err := regexp.Compile(c.Ledger.TelephonePattern); err != nil {
		return fmt.Errorf("ledger.telephone_pattern: %w", err)
	}
	if spec := c.Ledger.WithdrawalResetCron; spec != "" {
		if _, err := cronParser.Parse(spec); err != nil {
			return fmt.Errorf("ledger.withdrawal_reset_cron: %w", err)
		}
	}
	switch c.Storage.Driver {
	case "file", "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for driver %q", c.Storage.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("storage.driver must be file, sqlite or memory, got %q", c.Storage.Driver)
	}
	if c.Receipt.Size <= 0 || c.Receipt.OutputDir == "" {
		return fmt.Errorf("receipt.output_dir and a positive receipt.size are required")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// MarketSchedule parses the schedule section in its configured timezone.
func (c *Config) MarketSchedule() (*schedule.Schedule, error) {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("schedule.timezone: %w", err)
	}
	s, err := schedule.Parse(c.Schedule.Days, c.Schedule.Hours, loc)
	if err != nil {
		return nil, fmt.Errorf("schedule: %w", err)
	}
	return s, nil
}

func (c *Config) PriceConfig() pricefeed.Config {
	return pricefeed.Config{
		Interval: c.Price.TickInterval,
		Min:      decimal.NewFromFloat(c.Price.Min),
		Max:      decimal.NewFromFloat(c.Price.Max),
		MaxStep:  decimal.NewFromFloat(c.Price.MaxStep),
	}
}

func (c *Config) SessionConfig() session.Config {
	return session.Config{MaxTrades: c.Session.MaxTrades, Timeout: c.Session.Timeout}
}

func (c *Config) LedgerConfig() ledger.Config {
	return ledger.Config{
		DepositAmount:         decimal.NewFromFloat(c.Ledger.DepositAmount),
		CodePrefix:            c.Ledger.CodePrefix,
		CodeCount:             c.Ledger.CodeCount,
		MinWithdrawal:         decimal.NewFromFloat(c.Ledger.MinWithdrawal),
		MaxWithdrawal:         decimal.NewFromFloat(c.Ledger.MaxWithdrawal),
		MaxWithdrawalsPerWeek: c.Ledger.MaxWithdrawalsPerWeek,
		TelephonePattern:      c.Ledger.TelephonePattern,
	}
}
