package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/loykin/adorun"
	"github.com/spf13/cobra"
)

var operationsCmd = &cobra.Command{
	Use:   "operations",
	Short: "List the supported resource/operation pairs",
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "RESOURCE\tOPERATION\tDESCRIPTION")
		for _, op := range adorun.Operations() {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", op.Key.Resource, op.Key.Operation, op.Summary)
		}
		return tw.Flush()
	},
}
