// Package region converts region mappings, the configuration-facing form of
// a delineation request, to and from domain.Request.
//
// A mapping names one kind with its seed and may add thresholds and options:
//
//	subbasin: [12.3, 45.6]
//	strord: 4
//	bounds: [12.0, 45.0, 13.0, 46.0]
//
//	interbasin: [12.0, 45.0, 13.0, 46.0]
//	strord: 5
//	buffer: {value: 0.05, unit: map}
//
// Region files hold one mapping, a `region:` mapping or a `regions:` list.
package region
