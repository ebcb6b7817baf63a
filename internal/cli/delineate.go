package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/catchment/pkg/adapters/file"
	"github.com/aretw0/catchment/pkg/domain"
	"github.com/aretw0/catchment/pkg/region"
)

// DelineateOptions controls the delineate command.
type DelineateOptions struct {
	Printer *Printer
	// MaskOut, when set, receives each mask as an ASCII grid.
	MaskOut string
}

// ReadRegions loads requests from a region file, or parses arg as an
// inline JSON or YAML mapping when it is not a file name.
func ReadRegions(arg string) ([]domain.Request, error) {
	if _, err := os.Stat(arg); err == nil {
		return region.LoadFile(arg)
	}
	trimmed := strings.TrimSpace(arg)
	switch {
	case strings.HasPrefix(trimmed, "{"):
		return region.Decode([]byte(trimmed), true)
	case strings.Contains(trimmed, ":"):
		return region.Decode([]byte(trimmed), false)
	}
	return region.LoadFile(arg)
}

// RunDelineate resolves reqs concurrently and prints the results.
func RunDelineate(ctx context.Context, rt *Runtime, reqs []domain.Request, opts DelineateOptions) error {
	info, err := rt.Engine.Info(ctx)
	if err != nil {
		return err
	}
	results, err := rt.Engine.DelineateAll(ctx, reqs)
	if err != nil {
		return err
	}

	if opts.MaskOut != "" {
		for i, d := range results {
			out, err := filepath.Abs(MaskPath(opts.MaskOut, i, len(results)))
			if err != nil {
				return err
			}
			if err := file.WriteMask(ctx, rt.FS, out, d.Mask); err != nil {
				return fmt.Errorf("region %d: %w", i+1, err)
			}
		}
	}
	return opts.Printer.Delineations(info, reqs, results)
}

// MaskPath numbers mask files when a document holds several regions:
// mask.asc becomes mask-1.asc, mask-2.asc and so on.
func MaskPath(path string, i, n int) string {
	if n <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(path, ext), i+1, ext)
}
