package region

import (
	"fmt"
	"strings"

	"github.com/aretw0/catchment/pkg/domain"
)

// ValidationError represents a single invalid entry of a region mapping.
type ValidationError struct {
	Key    string // region key, e.g. "bounds" or "subbasin"
	Reason string
	Value  any
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("region %q: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("region %q: %s (got %v)", e.Key, e.Reason, e.Value)
}

func (e *ValidationError) Unwrap() error { return domain.ErrInvalidRequest }

// AggregateError represents every failure found in one region mapping.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d region errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err.Error())
	}
	return b.String()
}

func (e *AggregateError) Unwrap() []error { return e.Errors }

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	if aggr, ok := err.(*AggregateError); ok {
		return aggr.Errors
	}
	return nil
}
