package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/microgrid/config"
	"github.com/kilianp07/microgrid/core/prediction"
	"github.com/kilianp07/microgrid/infra/estimator"
	"github.com/kilianp07/microgrid/infra/logger"
)

var estimatorListen string

var estimatorCmd = &cobra.Command{
	Use:   "estimator",
	Short: "Serve the generation model and forecast over HTTP",
	RunE:  runEstimator,
}

func init() {
	estimatorCmd.Flags().StringVar(&estimatorListen, "listen", "", "listen address (overrides estimator.listen)")
	rootCmd.AddCommand(estimatorCmd)
}

func runEstimator(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.SetLevel(cfg.Logging.Level)
	pred, err := prediction.NewEngine(cfg.Estimator.Linear)
	if err != nil {
		return err
	}
	addr := cfg.Estimator.Listen
	if estimatorListen != "" {
		addr = estimatorListen
	}
	return estimator.NewServer(cfg.Estimator.Model, pred, logger.New("estimator")).ListenAndServe(ctx, addr)
}
