package models

import (
	"fmt"
	"strings"
)

// ValidationError describes a rejected field. Min and Max are set when the
// field has a numeric bound.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
	Min    *int   `json:"min,omitempty"`
	Max    *int   `json:"max,omitempty"`
}

func (e *ValidationError) Error() string {
	if e.Min != nil && e.Max != nil {
		return fmt.Sprintf("invalid %s: %s (allowed %d..%d)", e.Field, e.Reason, *e.Min, *e.Max)
	}
	if e.Min != nil {
		return fmt.Sprintf("invalid %s: %s (minimum %d)", e.Field, e.Reason, *e.Min)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func missing(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: "is required"}
}

func outOfRange(field string, v, lo, hi int) *ValidationError {
	return &ValidationError{
		Field:  field,
		Reason: fmt.Sprintf("%d is out of range", v),
		Min:    &lo,
		Max:    &hi,
	}
}

func belowMinimum(field string, v, lo int) *ValidationError {
	return &ValidationError{
		Field:  field,
		Reason: fmt.Sprintf("%d is below minimum", v),
		Min:    &lo,
	}
}

// ValidateUID trims uid and rejects an empty value.
func ValidateUID(uid string) (string, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return "", missing("uid")
	}
	return uid, nil
}
