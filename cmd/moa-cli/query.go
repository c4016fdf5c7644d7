package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"moa/internal/domain"
	"moa/internal/routes"
)

func (a *app) newLoopbackCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "loopback",
		Short: "Submit the configured parameters to the loopback endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params := a.defaults().Params
			res, err := a.client().Loopback(cmd.Context(), params)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer tw.Flush()
			fmt.Fprintf(tw, "win rate\t%.2f%%\n", res.WinRate*100)
			fmt.Fprintf(tw, "total profit\t%.2f%%\n", res.TotalProfit*100)
			fmt.Fprintf(tw, "annual profit\t%.2f%%\n", res.AnnualProfit*100)
			fmt.Fprintf(tw, "sharpe ratio\t%.2f\n", res.SharpeRatio)
			fmt.Fprintf(tw, "max drawdown\t%.2f%%\n", res.MaxDrawdown*100)
			fmt.Fprintf(tw, "trades\t%d\n", res.TradesCount)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func (a *app) newStockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stock <symbol>...",
		Short: "Show quote snapshots for one or more symbols",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snaps, err := a.client().StockInfos(cmd.Context(), args)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer tw.Flush()
			fmt.Fprintln(tw, "SYMBOL\tNAME\tPRICE\tCHANGE\tCHANGE%\tVOLUME")
			for _, s := range snaps {
				fmt.Fprintf(tw, "%s\t%s\t%.2f\t%+.2f\t%+.2f\t%d\n",
					s.Symbol, s.Name, s.Price, s.Change, s.ChangePercent, s.Volume)
			}
			return nil
		},
	}
}

func (a *app) newFactorsCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "factors",
		Short: "List the factors offered by the backtest service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if kind != "" && !domain.FactorKind(kind).Valid() {
				return fmt.Errorf("unknown factor type %q (want pick, buy or sell)", kind)
			}
			factors, err := a.client().Factors(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer tw.Flush()
			fmt.Fprintln(tw, "TYPE\tNAME\tDESCRIPTION")
			for _, f := range factors {
				if kind != "" && string(f.Kind) != kind {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Kind, f.Name, f.Description)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "type", "", "Only list factors of this type (pick, buy, sell)")
	return cmd
}

func (a *app) newPoolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pools",
		Short: "List the stock pools offered by the backtest service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pools, err := a.client().StockPools(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer tw.Flush()
			fmt.Fprintln(tw, "ID\tNAME\tSYMBOLS\tDESCRIPTION")
			for _, p := range pools {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.ID, p.Name, p.SymbolCount, p.Description)
			}
			return nil
		},
	}
}

func newRoutesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the dashboard pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer tw.Flush()
			fmt.Fprintln(tw, "PATH\tNAME\tVIEW")
			for _, r := range routes.All() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Path, r.Name, r.View)
			}
			return nil
		},
	}
}
