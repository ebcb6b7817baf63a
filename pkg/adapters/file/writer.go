package file

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/aretw0/catchment/pkg/domain"
	"github.com/viant/afs"
)

// MaskNoData marks unselected cells in written masks.
const MaskNoData = 0

// EncodeMask renders a mask as an ESRI ASCII grid of 1 and 0, with 0 as
// the no-data value, so GIS tools can polygonise the selected cells.
func EncodeMask(m *domain.Mask) ([]byte, error) {
	t := m.Transform
	if t.B != 0 || t.D != 0 || t.A != -t.E {
		return nil, fmt.Errorf("mask transform is not north-up with square cells")
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "ncols %d\n", m.Window.Cols)
	fmt.Fprintf(&buf, "nrows %d\n", m.Window.Rows)
	fmt.Fprintf(&buf, "xllcorner %s\n", strconv.FormatFloat(t.C, 'g', -1, 64))
	fmt.Fprintf(&buf, "yllcorner %s\n", strconv.FormatFloat(t.F+t.E*float64(m.Window.Rows), 'g', -1, 64))
	fmt.Fprintf(&buf, "cellsize %s\n", strconv.FormatFloat(t.A, 'g', -1, 64))
	fmt.Fprintf(&buf, "NODATA_value %d\n", MaskNoData)
	for r := 0; r < m.Window.Rows; r++ {
		for c := 0; c < m.Window.Cols; c++ {
			if c > 0 {
				buf.WriteByte(' ')
			}
			if m.Bits[r*m.Window.Cols+c] {
				buf.WriteByte('1')
			} else {
				buf.WriteByte('0')
			}
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// WriteMask uploads a mask as an ASCII grid to URL.
func WriteMask(ctx context.Context, fs afs.Service, URL string, m *domain.Mask) error {
	if fs == nil {
		fs = afs.New()
	}
	data, err := EncodeMask(m)
	if err != nil {
		return err
	}
	if err := fs.Upload(ctx, URL, 0o644, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write mask to %s: %w", URL, err)
	}
	return nil
}
