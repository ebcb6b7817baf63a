/*
Package catchment delineates drainage regions from a D8 flow-direction grid.

Given a region request (a basin, subbasin or interbasin selection seeded by
points or a bounding box, optionally filtered by thresholds on co-registered
variables such as stream order or upstream area) it returns a boolean mask
of the selected cells and the set of outlets the region drains to.

# Concept

Raster data is accessed in two phases through a ports.RasterReader: Open
returns the metadata of a dataset and Read returns the values of a window.
The Engine plans the smallest window a request needs (the bounds of a
subbasin, the buffered box of an interbasin, or the basins a basin index
places around the seeds), reads only that window and delineates over it.
Results computed on a narrowed window are identical to full-grid results;
when a result reaches the edge of the narrowed window the engine falls
back to the full grid.

# Kinds

  - basin: the whole basin of each seed, i.e. everything draining to the
    terminal outlet its flow path ends at.
  - subbasin: the area upstream of each seed, optionally snapped downstream
    to the nearest cell that satisfies the thresholds.
  - interbasin: the area inside a bounding box upstream of the streams that
    leave it, excluding areas upstream of streams entering it.

# Usage

	reader, _ := file.NewReader(afs.New(), "data")
	eng, err := catchment.New(reader, "flwdir.asc",
		catchment.WithVariable("strord", "strord.asc"),
		catchment.WithLogger(logger),
	)
	if err != nil {
		log.Fatal(err)
	}

	req, err := region.Parse(map[string]any{"subbasin": []any{12.3, 45.6}, "strord": 4})
	if err != nil {
		log.Fatal(err)
	}
	d, err := eng.Delineate(ctx, req)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(d.Cells(), d.Outlets)
*/
package catchment
