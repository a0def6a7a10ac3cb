package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/photovault/photovault/pkg/logger"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Suspend accounts whose grace period has run out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return a.sweep(cmd.Context())
		},
	}
}

func newPayoutsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "payouts",
		Short: "Transfer commissions whose payout date has arrived",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if a.payouts == nil {
				return errPayoutsDisabled
			}
			return a.payout(cmd.Context())
		},
	}
}

func (a *app) sweep(ctx context.Context) error {
	start := time.Now()
	n, err := a.accounts.Sweep(ctx, start)
	if err != nil {
		return err
	}
	a.log.InfoContext(ctx, "grace sweep finished", logger.Count("suspended", n), logger.Duration(time.Since(start)))
	return nil
}

func (a *app) payout(ctx context.Context) error {
	start := time.Now()
	sum, err := a.payouts.RunDue(ctx, start)
	a.log.InfoContext(ctx, "payout run finished",
		logger.Count("paid", sum.Paid),
		logger.Count("skipped", sum.Skipped),
		logger.Count("failed", sum.Failed),
		logger.Duration(time.Since(start)),
	)
	return err
}
