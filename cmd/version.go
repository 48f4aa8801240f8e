package cmd

import (
	"fmt"

	"github.com/brendan-ward/geostiler/geos"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the GEOS versions used by geostiler",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "GEOS runtime: %s\nGEOS headers: %s\n", geos.Version(), geos.GEOSVersion)
	},
}
