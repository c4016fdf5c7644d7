package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"moa/internal/history"
)

func (a *app) openHistory() (*history.SQLiteStore, error) {
	hs, err := history.NewSQLiteStore(a.cfg.Storage.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	return hs, nil
}

func (a *app) newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect saved backtest runs",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			hs, err := a.openHistory()
			if err != nil {
				return err
			}
			defer hs.Close()

			runs, err := hs.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer tw.Flush()
			fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tPOOL\tTRADES\tERROR")
			for _, r := range runs {
				trades := 0
				if r.Result != nil {
					trades = r.Result.TradesCount
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
					r.ID, r.StartedAt.Format(time.DateTime), r.Status, r.Request.StockPool, trades, r.Error)
			}
			return nil
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list (0 for all)")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a saved run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hs, err := a.openHistory()
			if err != nil {
				return err
			}
			defer hs.Close()

			rec, err := hs.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}

	del := &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hs, err := a.openHistory()
			if err != nil {
				return err
			}
			defer hs.Close()

			if err := hs.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}

func (a *app) newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <run-id> [file.parquet]",
		Short: "Export the trades of a saved run to Parquet",
		Long: `Write the trade records of a saved run to a Parquet file. The file
defaults to <data_dir>/exports/<run-id>.parquet.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hs, err := a.openHistory()
			if err != nil {
				return err
			}
			defer hs.Close()

			id := args[0]
			rec, err := hs.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if rec.Result == nil || len(rec.Result.TradeRecords) == 0 {
				return fmt.Errorf("run %s has no trade records", id)
			}

			path := filepath.Join(a.cfg.Storage.DataDir, "exports", id+".parquet")
			if len(args) == 2 {
				path = args[1]
			}
			if err := history.ExportTrades(path, id, rec.Result.TradeRecords); err != nil {
				return err
			}
			a.log.Info("exported trades", "run_id", id, "path", path, "trades", len(rec.Result.TradeRecords))
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d trades to %s\n", len(rec.Result.TradeRecords), path)
			return nil
		},
	}
}
