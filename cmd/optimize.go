package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/hems/app"
	"github.com/kilianp07/hems/config"
	"github.com/kilianp07/hems/core/model"
)

var (
	waitSeconds int
	hoursAhead  int
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Run a single optimization pass and exit",
	RunE:  runOptimize,
}

func init() {
	optimizeCmd.Flags().IntVar(&waitSeconds, "wait", 10, "seconds to wait for retained telemetry")
	optimizeCmd.Flags().IntVar(&hoursAhead, "hours", 0, "planning horizon in hours (0 uses the configured default, clamped to 12-48)")
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	if err := waitForPrices(ctx, svc, time.Duration(waitSeconds)*time.Second); err != nil {
		return err
	}
	return svc.Coordinator.RunOptimization(ctx, "cli", hoursAhead)
}

// waitForPrices blocks until the retained buy price curve arrives from the
// broker or the timeout expires.
func waitForPrices(ctx context.Context, svc *app.Service, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		points, err := svc.Prices(ctx, model.PriceBuy)
		if err == nil && len(points) > 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("no buy prices received within %s", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}
