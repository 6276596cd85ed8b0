package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(env *string) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the current queue/store status for a prefix",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, *env)
			if err != nil {
				return err
			}
			defer a.close()

			status, err := a.client.Status(ctx, prefix)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "prefix=%s queue_enabled=%t store_capacity=%d store_size=%d queue_size=%d updated=%s\n",
				prefix, status.QueueEnabled, status.StoreCapacity, status.StoreSize, status.QueueSize, status.Updated)
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "omnis_bouncer", "queue prefix")
	return cmd
}
