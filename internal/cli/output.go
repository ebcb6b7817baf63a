package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/catchment"
	"github.com/aretw0/catchment/internal/presentation/tui"
	"github.com/aretw0/catchment/pkg/domain"
	"github.com/aretw0/catchment/pkg/region"
)

// Output formats.
const (
	FormatAuto   = "auto"
	FormatJSON   = "json"
	FormatReport = "report"
)

// Printer writes results as JSON, or as rendered markdown reports on a
// terminal.
type Printer struct {
	W      io.Writer
	Format string
}

func (p *Printer) format() (string, error) {
	switch p.Format {
	case "", FormatAuto:
		if IsTerminal(p.W) {
			return FormatReport, nil
		}
		return FormatJSON, nil
	case FormatJSON, FormatReport:
		return p.Format, nil
	}
	return "", fmt.Errorf("unknown output format %q: use auto, json or report", p.Format)
}

// Delineations prints one result per request. JSON output is a single
// object for one request and an array otherwise.
func (p *Printer) Delineations(info domain.RasterInfo, reqs []domain.Request, results []*domain.Delineation) error {
	f, err := p.format()
	if err != nil {
		return err
	}
	if f == FormatJSON {
		if len(results) == 1 {
			return p.json(results[0])
		}
		return p.json(results)
	}

	render, err := tui.NewRenderer(TerminalWidth(p.W))
	if err != nil {
		return err
	}
	for i, d := range results {
		out, err := render(tui.Report(Label(reqs[i]), info, d))
		if err != nil {
			return err
		}
		fmt.Fprint(p.W, out)
	}
	return nil
}

// Stats prints grid statistics.
func (p *Printer) Stats(s *catchment.GridStats) error {
	f, err := p.format()
	if err != nil {
		return err
	}
	if f == FormatJSON {
		return p.json(s)
	}
	render, err := tui.NewRenderer(TerminalWidth(p.W))
	if err != nil {
		return err
	}
	out, err := render(tui.StatsReport(s))
	if err != nil {
		return err
	}
	fmt.Fprint(p.W, out)
	return nil
}

// Info prints dataset metadata.
func (p *Printer) Info(info domain.RasterInfo) error {
	f, err := p.format()
	if err != nil {
		return err
	}
	if f == FormatJSON {
		return p.json(map[string]any{"dataset": info, "extent": info.Extent()})
	}
	fmt.Fprintf(p.W, "%s: %d rows × %d cols, extent %s", info.Name, info.Rows, info.Cols, info.Extent())
	if info.CRS != "" {
		fmt.Fprintf(p.W, ", crs %s", info.CRS)
	}
	fmt.Fprintln(p.W)
	return nil
}

func (p *Printer) json(v any) error {
	enc := json.NewEncoder(p.W)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Label renders a request as its compact region mapping.
func Label(req domain.Request) string {
	b, err := json.Marshal(region.Format(req))
	if err != nil {
		return req.Kind.String()
	}
	return string(b)
}
