/*
Package ports defines the driven ports (interfaces) of the catchment engine.

These interfaces decouple delineation from where rasters, basin indexes and
cached results live, so the same engine runs over local grid files, memory
fixtures or a shared redis cache.

# Key Interfaces

  - RasterReader: two-phase raster access, Open for metadata then Read for a window.
  - BasinIndex: basin records with bounds, used to narrow the read window.
  - ResultStore: cached delineations keyed by a canonical request key.
  - DistributedLocker: serialises filling one cache key across replicas.
  - Delineator: the engine surface consumed by the HTTP and MCP adapters.
*/
package ports
