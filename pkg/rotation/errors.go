package rotation

import (
	"errors"
	"fmt"
)

// ConfigurationError reports inputs that cannot be planned at all. It is raised
// before any unit is assigned.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("configuration error: %s - %s", e.Field, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// AllocationInvariantError means quota bookkeeping went wrong. It is a defect,
// not a condition callers are expected to recover from.
type AllocationInvariantError struct {
	Message string
}

func (e *AllocationInvariantError) Error() string {
	return fmt.Sprintf("allocation invariant violated: %s", e.Message)
}

// ExhaustionError reports a positive quota that no eligible crop can fill.
type ExhaustionError struct {
	Category Category
	Message  string
}

func (e *ExhaustionError) Error() string {
	return fmt.Sprintf("category %q exhausted: %s", e.Category, e.Message)
}

func configErr(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func invariantErr(format string, args ...any) error {
	return &AllocationInvariantError{Message: fmt.Sprintf(format, args...)}
}

// IsConfiguration checks if an error is a ConfigurationError
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsAllocationInvariant checks if an error is an AllocationInvariantError
func IsAllocationInvariant(err error) bool {
	var target *AllocationInvariantError
	return errors.As(err, &target)
}

// IsExhaustion checks if an error is an ExhaustionError
func IsExhaustion(err error) bool {
	var target *ExhaustionError
	return errors.As(err, &target)
}
