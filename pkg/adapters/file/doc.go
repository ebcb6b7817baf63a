// Package file reads and writes catchment data through viant/afs, so grids,
// basin indexes and masks can live on local disk or any storage afs supports.
//
// Grids use the ESRI ASCII format (.asc). Results can also be cached as JSON
// files with Store.
package file
