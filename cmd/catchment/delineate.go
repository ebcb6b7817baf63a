package main

import (
	"github.com/aretw0/catchment/internal/cli"
	"github.com/spf13/cobra"
)

var delineateCmd = &cobra.Command{
	Use:   "delineate <region-file | region>",
	Short: "Delineate the regions of a region document",
	Long: `Resolves every region of a YAML or JSON region document, or of an inline
mapping, and prints the masks and outlets.

Examples:
  catchment delineate regions.yaml
  catchment delineate '{"subbasin": [12.1, 45.3], "strord": 4}'
  catchment delineate 'basin: [11.0, 45.0, 12.0, 46.0]' --mask-out basin.asc

Output is a markdown report on a terminal and JSON otherwise.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reqs, err := cli.ReadRegions(args[0])
		if err != nil {
			return err
		}
		rt, _, _, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		format, _ := cmd.Flags().GetString("output")
		maskOut, _ := cmd.Flags().GetString("mask-out")
		return cli.RunDelineate(cmd.Context(), rt, reqs, cli.DelineateOptions{
			Printer: &cli.Printer{W: cmd.OutOrStdout(), Format: format},
			MaskOut: maskOut,
		})
	},
}

func init() {
	rootCmd.AddCommand(delineateCmd)
	delineateCmd.Flags().StringP("output", "o", cli.FormatAuto, "Output format: auto, json or report")
	delineateCmd.Flags().String("mask-out", "", "Write each mask as an ASCII grid (numbered when there are several)")
}
