package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "moa.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATA_DIR", "SQLITE_PATH", "MOA_API_BASE_URL", "MOA_SERVER_HOST",
		"MOA_SERVER_PORT", "MOA_MOCK_DELAY", "MOA_ON_ERROR", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
storage:
  data_dir: "/tmp/moa/data"
  sqlite_path: "/tmp/moa/moa.db"
server:
  host: "0.0.0.0"
  port: 8080
api:
  base_url: "http://backtest.local:3001/api/moA"
  timeout: 30s
backtest:
  on_error: fallback-mock
  initial_cash: 500000
  n_folds: 3
  start_date: "2021-01-01"
  end_date: "2022-12-31"
  symbols: ["sh600519"]
  stock_pool: zz500
  buy_factors:
    - name: AbuFactorBuyBreak
      params: '{"xd": 60}'
mock:
  delay: 250ms
  rate_limit_per_sec: 20
logging:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/moa/data", cfg.Storage.DataDir)
	assert.Equal(t, "/tmp/moa/moa.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "http://backtest.local:3001/api/moA", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, "fallback-mock", cfg.Backtest.OnError)
	assert.Equal(t, 500000.0, cfg.Backtest.InitialCash)
	assert.Equal(t, 3, cfg.Backtest.NFolds)
	assert.Equal(t, []string{"sh600519"}, cfg.Backtest.Symbols)
	assert.Equal(t, "zz500", cfg.Backtest.StockPool)
	require.Len(t, cfg.Backtest.BuyFactors, 1)
	assert.Equal(t, `{"xd": 60}`, cfg.Backtest.BuyFactors[0].Params)
	// Lists absent from the file keep their defaults.
	require.Len(t, cfg.Backtest.SellFactors, 1)
	assert.Equal(t, "AbuFactorSellPreAtrN", cfg.Backtest.SellFactors[0].Name)
	assert.Equal(t, 250*time.Millisecond, cfg.Mock.Delay)
	assert.Equal(t, 20.0, cfg.Mock.RateLimitPerSec)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_DIR", "/srv/data")
	t.Setenv("SQLITE_PATH", "/srv/moa.db")
	t.Setenv("MOA_API_BASE_URL", "http://other:9000/api")
	t.Setenv("MOA_SERVER_HOST", "127.0.0.1")
	t.Setenv("MOA_SERVER_PORT", "4000")
	t.Setenv("MOA_MOCK_DELAY", "0s")
	t.Setenv("MOA_ON_ERROR", "fallback-mock")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, "server:\n  port: 8080\n"))
	require.NoError(t, err)

	assert.Equal(t, "/srv/data", cfg.Storage.DataDir)
	assert.Equal(t, "/srv/moa.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "http://other:9000/api", cfg.API.BaseURL)
	assert.Equal(t, "127.0.0.1:4000", cfg.Server.Addr())
	assert.Equal(t, time.Duration(0), cfg.Mock.Delay)
	assert.Equal(t, "fallback-mock", cfg.Backtest.OnError)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestBadEnvValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("MOA_SERVER_PORT", "eighty")
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "MOA_SERVER_PORT")

	clearEnv(t)
	t.Setenv("MOA_MOCK_DELAY", "soon")
	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "MOA_MOCK_DELAY")
}

func TestValidation(t *testing.T) {
	clearEnv(t)
	for name, content := range map[string]string{
		"bad port":       "server:\n  port: 70000\n",
		"bad policy":     "backtest:\n  on_error: retry\n",
		"zero cash":      "backtest:\n  initial_cash: 0\n",
		"bad date":       "backtest:\n  start_date: 2020/01/01\n",
		"bad level":      "logging:\n  level: verbose\n",
		"unnamed factor": "backtest:\n  buy_factors:\n    - params: '{}'\n",
		"bad url":        "api:\n  base_url: not-a-url\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.ErrorContains(t, err, "invalid config")
		})
	}
}

func TestMalformedYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "server: [\n"))
	assert.ErrorContains(t, err, "parsing")
}

func TestPath(t *testing.T) {
	t.Setenv("MOA_CONFIG", "")
	assert.Equal(t, DefaultPath, Path())
	t.Setenv("MOA_CONFIG", "/etc/moa.yaml")
	assert.Equal(t, "/etc/moa.yaml", Path())
}
