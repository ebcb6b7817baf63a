package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/catchment/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "catchment",
	Short: "Catchment delineates drainage areas from D8 flow-direction grids",
	Long: `Catchment resolves basin, subbasin and interbasin regions on a D8
flow-direction grid and returns a cell mask with its outlets.

Datasets, the basin index and the result cache are configured in
catchment.yaml; flags override the file.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	sc := cli.NewSignalContext(context.Background())
	defer sc.Cancel()
	if err := rootCmd.ExecuteContext(sc); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default ./"+cli.DefaultConfigFile+" when present)")
	rootCmd.PersistentFlags().String("flow", "", "Flow-direction grid, overrides the config")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
}

// setup loads the config and applies the persistent flag overrides.
func setup(cmd *cobra.Command) (*cli.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := cli.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	if v, _ := cmd.Flags().GetString("flow"); v != "" {
		cfg.Flow = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}
	logger, err := cli.NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// newRuntime builds the engine for commands that query the flow grid.
func newRuntime(cmd *cobra.Command) (*cli.Runtime, *cli.Config, *slog.Logger, error) {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	rt, err := cli.NewRuntime(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return rt, cfg, logger, nil
}
