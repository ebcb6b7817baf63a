package main

import (
	"github.com/aretw0/catchment/internal/cli"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Describe the configured flow grid",
	Long: `Prints the size, extent and CRS of the flow grid. With --stats the whole
grid is read and validated, and outlets and basin sizes are summarised.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, _, _, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		format, _ := cmd.Flags().GetString("output")
		p := &cli.Printer{W: cmd.OutOrStdout(), Format: format}

		if stats, _ := cmd.Flags().GetBool("stats"); stats {
			s, err := rt.Engine.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return p.Stats(s)
		}
		info, err := rt.Engine.Info(cmd.Context())
		if err != nil {
			return err
		}
		return p.Info(info)
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().Bool("stats", false, "Read the whole grid and summarise its drainage")
	infoCmd.Flags().StringP("output", "o", cli.FormatAuto, "Output format: auto, json or report")
}
