// Package flow delineates drainage areas over a D8 flow-direction grid.
//
// A Network wraps one immutable window of a FlowGrid together with the
// variable bands thresholds are evaluated on. The upstream relation is never
// materialised: each traversal step scans the eight neighbours of a cell for
// codes pointing back at it, so the cost of a query is proportional to the
// area it returns rather than to the grid.
package flow
