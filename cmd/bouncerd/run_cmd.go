package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmckeone/omnis-bouncer/internal/housekeeper"
	"github.com/dmckeone/omnis-bouncer/internal/logging"
	"github.com/dmckeone/omnis-bouncer/internal/metrics"
)

func newRunCommand(env *string) *cobra.Command {
	var prefixes string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the housekeeper and expose metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *env, strings.Split(prefixes, ","))
		},
	}
	cmd.Flags().StringVar(&prefixes, "prefixes", "omnis_bouncer", "comma-separated list of queue prefixes to housekeep")
	return cmd
}

func runServe(ctx context.Context, env string, prefixes []string) error {
	logging.Init()

	a, err := bootstrap(ctx, env)
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.Metrics.Enabled {
		metrics.StartServer(a.cfg.Metrics.Port, a.cfg.Metrics.Path)
	}

	hk := housekeeper.New(a.client, a.rdb, prefixes, time.Duration(a.cfg.Queue.HousekeepPeriod)*time.Second)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go hk.Run(runCtx)

	logging.Info("bouncerd started", map[string]any{"prefixes": prefixes})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logging.Info("shutdown signal received", nil)
	return nil
}
