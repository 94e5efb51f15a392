package services

import (
	"fmt"
	"strings"

	"github.com/kwarc/cheatsheets/internal/common"
	"github.com/kwarc/cheatsheets/internal/fields"
)

// IncompleteError is returned when extraction could not resolve every
// required key.
type IncompleteError struct {
	Diagnostics string
	Missing     []string
	Fields      fields.Fields
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("missing required fields: %s (%s)", strings.Join(e.Missing, ", "), e.Diagnostics)
}

func (e *IncompleteError) Unwrap() error { return common.ErrorMissingFields }

// IntegrityError is returned when a ledger row names a file that cannot be
// safely resolved inside the storage root.
type IntegrityError struct {
	FileName string
	Err      error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("storage integrity violation for %q: %v", e.FileName, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// MissingFieldsError lists absent request fields.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

func (e *MissingFieldsError) Unwrap() error { return common.ErrorMissingFields }
