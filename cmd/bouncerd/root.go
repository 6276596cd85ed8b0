package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newRootCommand() *cobra.Command {
	var env string

	cmd := &cobra.Command{
		Use:   "bouncerd",
		Short: "Omnis Bouncer admission-control core",
	}
	flags := pflag.NewFlagSet("bouncerd", pflag.ContinueOnError)
	flags.StringVar(&env, "env", "dev", "configuration environment name")
	cmd.PersistentFlags().AddFlagSet(flags)

	cmd.AddCommand(newRunCommand(&env))
	cmd.AddCommand(newStatusCommand(&env))
	cmd.AddCommand(newSeedCommand(&env))
	return cmd
}
