package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/librescoot/edfsm"
	"github.com/spf13/cobra"
)

var catalogueCmd = &cobra.Command{
	Use:   "catalogue",
	Short: "Print the lifecycle log catalogue",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tLEVEL\tTEMPLATE")
		for _, p := range edfsm.Catalogue {
			fmt.Fprintf(w, "%s\t%s\t{fsmName}: %s\n", p.ID, p.Level, p.Template)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(catalogueCmd)
}
