package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmckeone/omnis-bouncer/internal/keys"
)

func newSeedCommand(env *string) *cobra.Command {
	var prefix string
	var capacity int
	var enabled string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed a fresh prefix's configuration keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, *env)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.client.SetStoreCapacity(ctx, prefix, capacity); err != nil {
				return err
			}
			if err := a.client.SetQueueEnabledRaw(ctx, prefix, enabled); err != nil {
				return err
			}
			if err := a.rdb.Set(ctx, keys.QueueSyncTimestamp(prefix), time.Now().Unix(), 0).Err(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "seeded prefix=%s capacity=%d enabled=%s\n", prefix, capacity, enabled)
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "omnis_bouncer", "queue prefix")
	cmd.Flags().IntVar(&capacity, "capacity", -1, "store capacity, -1 for unbounded")
	cmd.Flags().StringVar(&enabled, "enabled", "true", "whether the queue is enabled (true/false/1/0)")
	return cmd
}
