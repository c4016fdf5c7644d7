package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"moa/internal/domain"
	"moa/internal/history"
	"moa/internal/strategy"
)

type runFlags struct {
	symbols   []string
	start     string
	end       string
	cash      float64
	folds     int
	pool      string
	pick      []string
	buy       []string
	sell      []string
	reset     bool
	onError   string
	asJSON    bool
	noHistory bool
}

func (a *app) newRunCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Submit an alpha strategy backtest",
		Long: `Build a backtest request from the configured defaults and the given
flags, submit it, and print the result. Factor flags replace the configured
list for their kind. Every completed run is saved to the local history.

Examples:
  moa-cli run
  moa-cli run --pool zz500 --buy AbuFactorBuyBreak --buy AbuFactorBuyGap
  moa-cli run --on-error fallback-mock --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runBacktest(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.StringSliceVar(&f.symbols, "symbols", nil, "Symbols to backtest")
	fl.StringVar(&f.start, "start", "", "Start date (YYYY-MM-DD)")
	fl.StringVar(&f.end, "end", "", "End date (YYYY-MM-DD)")
	fl.Float64Var(&f.cash, "cash", 0, "Initial cash")
	fl.IntVar(&f.folds, "folds", 0, "Number of folds")
	fl.StringVar(&f.pool, "pool", "", "Stock pool id")
	fl.StringArrayVar(&f.pick, "pick", nil, "Stock pick factor (repeatable)")
	fl.StringArrayVar(&f.buy, "buy", nil, "Buy factor (repeatable)")
	fl.StringArrayVar(&f.sell, "sell", nil, "Sell factor (repeatable)")
	fl.BoolVar(&f.reset, "reset", false, "Start from built-in defaults instead of the configured ones")
	fl.StringVar(&f.onError, "on-error", "", "Failure policy: surface or fallback-mock")
	fl.BoolVar(&f.asJSON, "json", false, "Print the full store state as JSON")
	fl.BoolVar(&f.noHistory, "no-history", false, "Do not save the run to the local history")
	return cmd
}

func (a *app) runBacktest(cmd *cobra.Command, f *runFlags) error {
	policyName := a.cfg.Backtest.OnError
	if f.onError != "" {
		policyName = f.onError
	}
	policy, err := strategy.ParseErrorPolicy(policyName)
	if err != nil {
		return err
	}

	defaults := a.defaults()
	if f.reset {
		defaults = strategy.BuiltinDefaults()
	}
	opts := []strategy.Option{
		strategy.WithLogger(a.log),
		strategy.WithErrorPolicy(policy),
		strategy.WithDefaults(defaults),
	}
	if !f.noHistory {
		hs, err := history.NewSQLiteStore(a.cfg.Storage.SQLitePath)
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		defer hs.Close()
		opts = append(opts, strategy.WithRecorder(hs))
	}

	store := strategy.NewStore(a.client(), opts...)
	applyRunFlags(cmd, store, f)

	st := store.Run(cmd.Context())

	out := cmd.OutOrStdout()
	if f.asJSON {
		if err := printJSON(out, st); err != nil {
			return err
		}
	} else {
		printRunState(out, st)
	}
	if st.Error != "" {
		return errors.New(st.Error)
	}
	return nil
}

func applyRunFlags(cmd *cobra.Command, store *strategy.Store, f *runFlags) {
	changed := cmd.Flags().Changed
	store.UpdateParams(func(p *domain.BacktestParams) {
		if changed("symbols") {
			p.Symbols = f.symbols
		}
		if changed("start") {
			p.StartDate = f.start
		}
		if changed("end") {
			p.EndDate = f.end
		}
		if changed("cash") {
			p.InitialCash = f.cash
		}
		if changed("folds") {
			p.NFolds = f.folds
		}
	})
	if changed("pool") {
		store.SetStockPool(f.pool)
	}
	replaceFactors(store, domain.FactorKindPick, changed("pick"), f.pick)
	replaceFactors(store, domain.FactorKindBuy, changed("buy"), f.buy)
	replaceFactors(store, domain.FactorKindSell, changed("sell"), f.sell)
}

func replaceFactors(store *strategy.Store, kind domain.FactorKind, changed bool, names []string) {
	if !changed {
		return
	}
	current, _ := store.Factors(kind)
	for i := len(current) - 1; i >= 0; i-- {
		_ = store.RemoveFactor(kind, i)
	}
	for _, n := range names {
		_ = store.AddFactor(kind, n)
	}
}

func printRunState(w io.Writer, st strategy.State) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "run\t%s\n", st.LastRunID)
	if st.Error != "" {
		fmt.Fprintf(tw, "error\t%s\n", st.Error)
	}
	r := st.Result
	if r == nil {
		return
	}
	if r.DataSource != "" {
		fmt.Fprintf(tw, "source\t%s\n", r.DataSource)
	}
	fmt.Fprintf(tw, "win rate\t%.2f%%\n", r.WinRate*100)
	fmt.Fprintf(tw, "total profit\t%.2f%%\n", r.TotalProfit*100)
	fmt.Fprintf(tw, "annual profit\t%.2f%%\n", r.AnnualProfit*100)
	fmt.Fprintf(tw, "sharpe ratio\t%.2f\n", r.SharpeRatio)
	fmt.Fprintf(tw, "max drawdown\t%.2f%%\n", r.MaxDrawdown*100)
	fmt.Fprintf(tw, "trades\t%d\n", r.TradesCount)
	for _, s := range r.SelectedStocks {
		fmt.Fprintf(tw, "selected\t%s %s (%.1f)\n", s.Symbol, s.Name, s.Score)
	}
	if st.ChartData != nil {
		fmt.Fprintf(tw, "chart points\t%d\n", len(st.ChartData.Price))
	}
}
