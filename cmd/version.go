/*
	Copyright 2023 Markus Papenbrock
*/

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/tirecast/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "prints the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.FullVersion)
		},
	}
}
