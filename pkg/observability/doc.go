/*
Package observability turns engine lifecycle hooks into Prometheus metrics.

Metrics registers its collectors on a caller-supplied registry and exposes
domain.LifecycleHooks that can be merged with any other hooks passed to the
engine.
*/
package observability
