package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/catchment"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of catchment",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "catchment version %s\n", strings.TrimSpace(catchment.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
