package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where binaries look for the configuration file when
// MOA_CONFIG is unset.
const DefaultPath = "config/moa.yaml"

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the moa tools.
type Config struct {
	Storage  Storage  `yaml:"storage"`
	Server   Server   `yaml:"server"`
	API      API      `yaml:"api"`
	Backtest Backtest `yaml:"backtest"`
	Mock     Mock     `yaml:"mock"`
	Logging  Logging  `yaml:"logging"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir" validate:"required"`
	SQLitePath string `yaml:"sqlite_path" validate:"required"`
}

// Server holds network listener configuration for the mock service.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port" validate:"min=1,max=65535"`
}

// Addr returns host:port.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// API configures the client of the backtest service.
type API struct {
	BaseURL string        `yaml:"base_url" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
}

// Backtest holds the default run configuration and the failure policy.
type Backtest struct {
	OnError      string   `yaml:"on_error" validate:"oneof=surface fallback-mock"`
	InitialCash  float64  `yaml:"initial_cash" validate:"gt=0"`
	NFolds       int      `yaml:"n_folds" validate:"gte=1"`
	StartDate    string   `yaml:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate      string   `yaml:"end_date" validate:"required,datetime=2006-01-02"`
	Symbols      []string `yaml:"symbols"`
	StockPool    string   `yaml:"stock_pool"`
	StockFactors []Factor `yaml:"stock_factors" validate:"dive"`
	BuyFactors   []Factor `yaml:"buy_factors" validate:"dive"`
	SellFactors  []Factor `yaml:"sell_factors" validate:"dive"`
}

// Factor is one configured factor with its JSON params.
type Factor struct {
	Name   string `yaml:"name" validate:"required"`
	Params string `yaml:"params"`
}

// Mock configures the mock backtest service.
type Mock struct {
	Delay           time.Duration `yaml:"delay" validate:"gte=0"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec" validate:"gte=0"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=json text"`
}

// ---------------------------------------------------------------------------
// Defaults
// ---------------------------------------------------------------------------

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/moa.db",
		},
		Server: Server{
			Host: "localhost",
			Port: 3001,
		},
		API: API{
			BaseURL: "http://localhost:3001/api/moA",
		},
		Backtest: Backtest{
			OnError:     "surface",
			InitialCash: 1000000,
			NFolds:      2,
			StartDate:   "2020-01-01",
			EndDate:     "2023-12-31",
			Symbols:     []string{"sh600000", "sh600036", "sh600519", "sz000001", "sz000858"},
			StockPool:   "hs300",
			StockFactors: []Factor{
				{Name: "AbuPickStockNDay", Params: `{"xd": 20}`},
			},
			BuyFactors: []Factor{
				{Name: "AbuFactorBuyBreak", Params: `{"xd": 20}`},
			},
			SellFactors: []Factor{
				{Name: "AbuFactorSellPreAtrN", Params: `{"close_atr_n": 1.5}`},
			},
		},
		Mock: Mock{
			Delay: time.Second,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

var validate = validator.New()

// Load reads the YAML configuration file at the given path over the
// defaults, applies environment variable overrides and validates the result.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns MOA_CONFIG when set, else DefaultPath.
func Path() string {
	if v := os.Getenv("MOA_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("MOA_API_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}

	if v := os.Getenv("MOA_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("MOA_SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MOA_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}

	if v := os.Getenv("MOA_MOCK_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MOA_MOCK_DELAY: %w", err)
		}
		cfg.Mock.Delay = d
	}

	if v := os.Getenv("MOA_ON_ERROR"); v != "" {
		cfg.Backtest.OnError = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}
