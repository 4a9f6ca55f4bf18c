package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrStoreUnavailable indicates the backing medium could not be read.
	ErrStoreUnavailable = errors.New("record store unavailable")
	// ErrStoreWrite indicates an insert, update or delete failed.
	ErrStoreWrite = errors.New("record store write failed")
	// ErrNotFound indicates no record with the requested id exists.
	ErrNotFound = errors.New("record not found")
)

// ValidationError reports form fields that are missing or malformed. It is
// raised before any store call.
type ValidationError struct {
	Missing []string          `json:"missing,omitempty"`
	Invalid map[string]string `json:"invalid,omitempty"`
}

// Invalidf builds a ValidationError for a single malformed field.
func Invalidf(field, msg string) *ValidationError {
	return &ValidationError{Invalid: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		keys := make([]string, 0, len(e.Invalid))
		for k := range e.Invalid {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, k+" "+e.Invalid[k])
		}
	}
	if len(parts) == 0 {
		return "validation failed"
	}
	return strings.Join(parts, "; ")
}
