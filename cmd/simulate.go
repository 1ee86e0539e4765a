package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/microgrid/config"
	"github.com/kilianp07/microgrid/core/balance"
	"github.com/kilianp07/microgrid/core/engine"
	coremetrics "github.com/kilianp07/microgrid/core/metrics"
	"github.com/kilianp07/microgrid/core/model"
	"github.com/kilianp07/microgrid/core/ticklog"
	"github.com/kilianp07/microgrid/infra/estimator"
	"github.com/kilianp07/microgrid/infra/logger"
	"github.com/kilianp07/microgrid/pkg/export"
)

var (
	simTicks   int
	simFormat  string
	simBalance bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a fixed number of ticks offline and export the results",
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().IntVarP(&simTicks, "ticks", "n", 100, "number of ticks to run")
	simulateCmd.Flags().StringVarP(&simFormat, "format", "f", "csv", "output format: csv or json")
	simulateCmd.Flags().BoolVar(&simBalance, "balance", true, "run the auto-balance loop on simulated time")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simTicks <= 0 {
		return fmt.Errorf("--ticks must be positive")
	}
	if simFormat != "csv" && simFormat != "json" {
		return fmt.Errorf("unknown format %q", simFormat)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.SetLevel(cfg.Logging.Level)

	summaries, err := simulate(cmd.Context(), cfg, simTicks, simBalance)
	if err != nil {
		return err
	}
	return export.Write(cmd.OutOrStdout(), simFormat, summaries)
}

// simulate runs n ticks on a simulated clock. Each tick advances the clock
// by the base tick period; the auto-balance loop fires on its own period.
func simulate(ctx context.Context, cfg *config.Config, n int, withBalance bool) ([]model.TickSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	eng, err := engine.New(cfg.Engine, nil, logger.New("engine"))
	if err != nil {
		return nil, err
	}
	defer func() { _ = eng.Close() }()

	now := time.Now().UTC().Truncate(time.Second)
	eng.SetClock(func() time.Time { return now })
	if cfg.Estimator.URL != "" {
		eng.SetEstimator(estimator.NewClient(cfg.Estimator.URL, cfg.Estimator.Timeout))
	}
	store, err := ticklog.Open(cfg.TickLog)
	if err != nil {
		return nil, err
	}
	eng.SetLogStore(store)
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, err
	}
	eng.SetMetricsSink(sink)

	bal := balance.New(eng, cfg.Balance.Period, logger.New("balance"))
	nextBalance := now.Add(cfg.Balance.Period)

	out := make([]model.TickSummary, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		sum, err := eng.Tick(ctx)
		if err != nil {
			return out, fmt.Errorf("tick %d: %w", i+1, err)
		}
		out = append(out, sum)
		now = now.Add(cfg.Engine.BaseTick)
		for withBalance && cfg.Balance.Enabled && !now.Before(nextBalance) {
			bal.Step()
			nextBalance = nextBalance.Add(cfg.Balance.Period)
		}
	}
	return out, nil
}
