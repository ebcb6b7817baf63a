package file

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/aretw0/catchment/pkg/domain"
	"github.com/viant/afs"
	"github.com/viant/afs/url"
	"golang.org/x/sync/singleflight"
)

// DefaultNoData is the ESRI ASCII grid no-data value used when a header omits it.
const DefaultNoData = -9999

// Reader implements ports.RasterReader over ESRI ASCII grids (.asc).
// Datasets are named by URL, or by path relative to the reader's base URL.
// Open downloads a grid once and indexes where each row starts, which
// tokenizes every value of the file, so the first Open of a large grid
// costs a full scan. Read then parses only the rows and columns of the
// requested window. Grids are loaded concurrently; callers opening the same
// grid share one load.
type Reader struct {
	fs   afs.Service
	base string

	loads singleflight.Group
	mu    sync.Mutex
	grids map[string]*asciiGrid
}

type asciiGrid struct {
	info domain.RasterInfo
	data []byte
	rows []int // byte offset of the first value of each row
}

// NewReader creates a reader resolving relative names against base.
// An empty base resolves names as given.
func NewReader(fs afs.Service, base string) *Reader {
	if fs == nil {
		fs = afs.New()
	}
	return &Reader{fs: fs, base: base, grids: map[string]*asciiGrid{}}
}

// URL resolves a dataset name.
func (r *Reader) URL(name string) string {
	if r.base == "" || strings.Contains(name, "://") || strings.HasPrefix(name, "/") {
		return name
	}
	return url.Join(r.base, name)
}

// Open returns the header of a grid.
func (r *Reader) Open(ctx context.Context, name string) (domain.RasterInfo, error) {
	g, err := r.open(ctx, name)
	if err != nil {
		return domain.RasterInfo{}, err
	}
	return g.info, nil
}

func (r *Reader) open(ctx context.Context, name string) (*asciiGrid, error) {
	r.mu.Lock()
	g, ok := r.grids[name]
	r.mu.Unlock()
	if ok {
		return g, nil
	}

	// failed loads are not remembered, so a later Open retries
	v, err, _ := r.loads.Do(name, func() (any, error) {
		g, err := r.load(ctx, name)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.grids[name] = g
		r.mu.Unlock()
		return g, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*asciiGrid), nil
}

func (r *Reader) load(ctx context.Context, name string) (*asciiGrid, error) {
	u := r.URL(name)
	ok, err := r.fs.Exists(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", u, err)
	}
	if !ok {
		return nil, fmt.Errorf("dataset %s: %w", u, domain.ErrNotFound)
	}
	data, err := r.fs.DownloadWithURL(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", u, err)
	}
	g, err := parseGrid(name, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", u, err)
	}
	return g, nil
}

// Read returns the values of window w.
func (r *Reader) Read(ctx context.Context, name string, w domain.Window) (*domain.Band, error) {
	g, err := r.open(ctx, name)
	if err != nil {
		return nil, err
	}
	if w.Empty() || !g.info.Full().ContainsWindow(w) {
		return nil, fmt.Errorf("%w: window %v outside %s (%dx%d)", domain.ErrOutOfBounds, w, name, g.info.Rows, g.info.Cols)
	}

	values := make([]float64, 0, w.Size())
	for row := w.Row; row < w.Row+w.Rows; row++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pos := g.rows[row]
		for c := 0; c < w.Col; c++ {
			_, pos = token(g.data, pos)
		}
		for c := 0; c < w.Cols; c++ {
			var tok []byte
			tok, pos = token(g.data, pos)
			v, err := strconv.ParseFloat(string(tok), 64)
			if err != nil {
				return nil, fmt.Errorf("%s: row %d col %d: %w", name, row, w.Col+c, err)
			}
			values = append(values, v)
		}
	}
	return &domain.Band{Info: g.info, Window: w, Values: values}, nil
}

// token returns the whitespace-delimited token starting at or after pos and
// the position just past it.
func token(data []byte, pos int) ([]byte, int) {
	for pos < len(data) && isSpace(data[pos]) {
		pos++
	}
	start := pos
	for pos < len(data) && !isSpace(data[pos]) {
		pos++
	}
	return data[start:pos], pos
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

var headerKeys = map[string]bool{
	"ncols": true, "nrows": true,
	"xllcorner": true, "yllcorner": true, "xllcenter": true, "yllcenter": true,
	"cellsize": true, "nodata_value": true,
}

func parseGrid(name string, data []byte) (*asciiGrid, error) {
	header := map[string]float64{}
	pos := 0
	for {
		key, next := token(data, pos)
		k := strings.ToLower(string(key))
		if !headerKeys[k] {
			break
		}
		val, after := token(data, next)
		v, err := strconv.ParseFloat(string(val), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid header %s: %w", k, err)
		}
		header[k] = v
		pos = after
	}

	for _, k := range []string{"ncols", "nrows", "cellsize"} {
		if _, ok := header[k]; !ok {
			return nil, fmt.Errorf("missing header %s", k)
		}
	}
	cols, rows, size := int(header["ncols"]), int(header["nrows"]), header["cellsize"]
	if cols <= 0 || rows <= 0 || size <= 0 {
		return nil, fmt.Errorf("invalid grid shape %dx%d cellsize %g", rows, cols, size)
	}
	xll, xok := header["xllcorner"]
	if !xok {
		xll = header["xllcenter"] - size/2
	}
	yll, yok := header["yllcorner"]
	if !yok {
		yll = header["yllcenter"] - size/2
	}
	nodata, ok := header["nodata_value"]
	if !ok {
		nodata = DefaultNoData
	}

	g := &asciiGrid{
		info: domain.RasterInfo{
			Name:      name,
			Rows:      rows,
			Cols:      cols,
			Transform: domain.NorthUp(xll, yll+float64(rows)*size, size),
			NoData:    nodata,
		},
		data: data,
		rows: make([]int, rows),
	}
	for r := 0; r < rows; r++ {
		for pos < len(data) && isSpace(data[pos]) {
			pos++
		}
		g.rows[r] = pos
		for c := 0; c < cols; c++ {
			tok, next := token(data, pos)
			if len(tok) == 0 {
				return nil, fmt.Errorf("grid ends at row %d col %d, want %dx%d values", r, c, rows, cols)
			}
			pos = next
		}
	}
	if extra, _ := token(data, pos); len(bytes.TrimSpace(extra)) > 0 {
		return nil, fmt.Errorf("grid has more than %dx%d values", rows, cols)
	}
	return g, nil
}
