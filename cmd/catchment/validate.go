package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/catchment/internal/cli"
	"github.com/aretw0/catchment/pkg/adapters/file"
	"github.com/spf13/cobra"
	"github.com/viant/afs"
)

var validateCmd = &cobra.Command{
	Use:   "validate [grid...]",
	Short: "Check flow grids for malformed codes and cycles",
	Long: `Reads each flow grid completely and checks that every cell holds a valid
D8 code and that no flow path loops. Without arguments the configured flow
grid is checked. Grids are checked concurrently.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}

		names := args
		reader := file.NewReader(afs.New(), "")
		if len(names) == 0 {
			if cfg.Flow == "" {
				return fmt.Errorf("no grid given and no flow grid configured")
			}
			names = []string{cfg.Path(cfg.Flow)}
		}
		for i, n := range names {
			if strings.Contains(n, "://") || filepath.IsAbs(n) {
				continue
			}
			if abs, err := filepath.Abs(n); err == nil {
				names[i] = abs
			}
		}

		workers, _ := cmd.Flags().GetInt("workers")
		reports := cli.ValidateGrids(cmd.Context(), reader, names, workers, logger)

		out := cmd.OutOrStdout()
		failed := 0
		for _, r := range reports {
			if r.Err != nil {
				failed++
				fmt.Fprintf(out, "✗ %s: %v\n", r.Name, r.Err)
				continue
			}
			fmt.Fprintf(out, "✓ %s: %d cells, %d outlets\n", r.Name, r.Stats.Cells, r.Stats.Outlets)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d grids are invalid", failed, len(reports))
		}
		cli.PrintSystemMessage(out, "All grids are valid.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().IntP("workers", "w", 4, "Grids checked concurrently")
}
