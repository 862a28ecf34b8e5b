package main

import (
	"github.com/spf13/cobra"

	"github.com/kataria/backend/internal/config"
)

type configLoader func() (*config.Config, error)

func newRootCmd(load configLoader) *cobra.Command {
	root := &cobra.Command{
		Use:          "contactctl",
		Short:        "Operate the contact submission store",
		SilenceUsage: true,
	}
	root.AddCommand(newFallbackCmd(load), newIDCmd())
	return root
}
