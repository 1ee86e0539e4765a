package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/microgrid/config"
	"github.com/kilianp07/microgrid/core/ticklog"
	"github.com/kilianp07/microgrid/infra/kpi"
	"github.com/kilianp07/microgrid/jobs/ecokpi"
)

var kpiDB string

var kpiBackfillCmd = &cobra.Command{
	Use:   "kpi-backfill",
	Short: "Rebuild the daily energy KPIs from the tick log",
	RunE:  runKPIBackfill,
}

func init() {
	kpiBackfillCmd.Flags().StringVar(&kpiDB, "db", "kpi.db", "SQLite KPI database")
	rootCmd.AddCommand(kpiBackfillCmd)
}

func runKPIBackfill(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.TickLog.Backend == "none" {
		return fmt.Errorf("no tick log configured")
	}
	src, err := ticklog.Open(cfg.TickLog)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()
	history, err := src.Query(context.Background(), ticklog.Query{})
	if err != nil {
		return err
	}
	dst, err := kpi.NewSQLiteStore(kpiDB)
	if err != nil {
		return err
	}
	defer func() { _ = dst.Close() }()
	n, err := ecokpi.Backfill(dst, history)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d records from %d ticks\n", n, len(history))
	return err
}
