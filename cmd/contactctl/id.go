package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kataria/backend/internal/submissionid"
)

func newIDCmd() *cobra.Command {
	idCmd := &cobra.Command{
		Use:   "id",
		Short: "Submission identifier helpers",
	}
	idCmd.AddCommand(&cobra.Command{
		Use:   "parse <submission-id>",
		Short: "Print the creation time embedded in a submission ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := submissionid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ts.Format(time.RFC3339Nano))
			return nil
		},
	})
	return idCmd
}
