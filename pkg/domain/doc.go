/*
Package domain contains the core models of the catchment engine.

It defines D8 flow grids, the region requests that select basins, sub-basins
and inter-basins from them, and the masks and outlet sets those requests
produce. This package is kept pure and free of I/O, following Hexagonal
Architecture principles: readers, indexes and stores live behind the ports
package.

# Key Entities

  - FlowGrid: a window of D8 direction codes with its affine transform.
  - Band: a window of a co-registered variable such as stream order.
  - Request: a tagged region selection (basin, subbasin or interbasin).
  - Mask / OutletSet: the cells and outlets of a delineation.
  - Errors: OutOfBoundsError, NoMatchError, InvalidFlowGridError and the
    non-fatal IncompleteBasinWarning.
*/
package domain
