package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/credit-payments/internal/reconcile"
)

var reconcileOnce bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile stale orders against the payment gateway",
	Long:  `Completes or fails orders stuck in created by asking the gateway for their payments. Runs until SIGINT/SIGTERM unless --once is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReconciler(cmd.Context())
	},
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileOnce, "once", false, "run a single sweep and exit")
}

func runReconciler(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := initializeDependencies(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close(context.Background())

	cfg := deps.Config.Reconcile
	reconciler := reconcile.NewReconciler(reconcile.Config{
		Interval:  cfg.Interval,
		MinAge:    cfg.MinAge,
		BatchSize: cfg.BatchSize,
		Workers:   cfg.Workers,
	}, deps.Orders, deps.Gateway, deps.Completer, deps.Bus, deps.Logger)

	if reconcileOnce {
		n, err := reconciler.RunOnce(ctx)
		if err != nil {
			return fmt.Errorf("reconciliation sweep failed: %w", err)
		}
		deps.Logger.Info("reconciliation sweep finished", "orders", n)
		return nil
	}

	reconciler.Run(ctx)
	return nil
}
