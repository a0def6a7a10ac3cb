package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/photovault/photovault/pkg/config"
	"github.com/photovault/photovault/pkg/httpserver"
	"github.com/photovault/photovault/pkg/logger"
)

func newServeCmd() *cobra.Command {
	var noJobs bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with the grace sweep and payout loops",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, !noJobs)
		},
	}
	cmd.Flags().BoolVar(&noJobs, "no-jobs", false, "serve HTTP only; run sweep and payouts elsewhere")
	return cmd
}

func serve(ctx context.Context, jobs bool) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var srvCfg httpserver.Config
	if err := config.Load(&srvCfg); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.New(srvCfg, a.log).Run(ctx, a.router())
	})
	if jobs {
		g.Go(func() error {
			return every(ctx, a, "grace sweep", a.cfg.SweepInterval, a.sweep)
		})
		if a.payouts != nil {
			g.Go(func() error {
				return every(ctx, a, "payouts", a.cfg.PayoutInterval, a.payout)
			})
		} else {
			a.log.WarnContext(ctx, "payout loop disabled", logger.Error(errPayoutsDisabled))
		}
	}
	return g.Wait()
}

// every runs job once per interval until ctx is done. Job failures are
// logged and retried on the next tick.
func every(ctx context.Context, a *app, name string, interval time.Duration, job func(context.Context) error) error {
	if interval <= 0 {
		a.log.InfoContext(ctx, "periodic job disabled", logger.Component(name))
		return nil
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := job(ctx); err != nil {
				a.log.ErrorContext(ctx, "periodic job failed", logger.Component(name), logger.Error(err))
			}
		}
	}
}
