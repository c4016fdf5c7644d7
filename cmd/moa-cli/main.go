package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"moa/internal/config"
	"moa/internal/domain"
	"moa/internal/strategy"
	"moa/internal/util"
	"moa/pkg/moa"
)

const version = "0.1.0"

// app carries state shared by every subcommand once the root command has
// loaded configuration.
type app struct {
	cfgPath string
	baseURL string

	cfg *config.Config
	log *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "moa-cli",
		Short: "Configure and run alpha strategy backtests",
		Long: `moa-cli drives the alpha strategy backtest service: it edits the run
configuration, submits backtests, and keeps a local history of runs.

Examples:
  moa-cli run --buy AbuFactorBuyBreak --sell AbuFactorSellPreAtrN
  moa-cli stock sh600000 sz000001
  moa-cli history list --limit 5`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", config.Path(), "Path to the YAML configuration file")
	root.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "Backtest service base URL (overrides api.base_url)")

	root.AddCommand(
		newVersionCmd(),
		a.newRunCmd(),
		a.newLoopbackCmd(),
		a.newStockCmd(),
		a.newFactorsCmd(),
		a.newPoolsCmd(),
		newRoutesCmd(),
		a.newHistoryCmd(),
		a.newExportCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.baseURL != "" {
		cfg.API.BaseURL = a.baseURL
	}
	a.cfg = cfg
	a.log = util.NewWriterLogger(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	return nil
}

func (a *app) client() *moa.Client {
	opts := []moa.Option{moa.WithLogger(a.log)}
	if a.cfg.API.Timeout > 0 {
		opts = append(opts, moa.WithTimeout(a.cfg.API.Timeout))
	}
	return moa.NewClient(a.cfg.API.BaseURL, opts...)
}

// defaults converts the backtest section of the configuration into store
// defaults.
func (a *app) defaults() strategy.Defaults {
	b := a.cfg.Backtest
	return strategy.Defaults{
		Params: domain.BacktestParams{
			InitialCash: b.InitialCash,
			NFolds:      b.NFolds,
			StartDate:   b.StartDate,
			EndDate:     b.EndDate,
			Symbols:     b.Symbols,
		},
		StockPool:    b.StockPool,
		StockFactors: toFactors(b.StockFactors),
		BuyFactors:   toFactors(b.BuyFactors),
		SellFactors:  toFactors(b.SellFactors),
	}
}

func toFactors(in []config.Factor) []domain.Factor {
	out := make([]domain.Factor, len(in))
	for i, f := range in {
		params := f.Params
		if params == "" {
			params = domain.EmptyFactorParams
		}
		out[i] = domain.Factor{Name: f.Name, Params: params}
	}
	return out
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		// Skip config loading.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "moa-cli %s\n", version)
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
