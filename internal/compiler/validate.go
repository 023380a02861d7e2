package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/codecraft/internal/ritual"
)

// Validation error codes (E200-E299)
const (
	ErrEmptyText     = "E201" // text must be non-empty
	ErrDuplicateName = "E202" // ritual name defined twice
	ErrInvalidName   = "E203" // name is not a lower snake_case identifier
)

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidationError represents a catalog validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks templates against the catalog rules.
// Returns all errors found (does not fail-fast).
func Validate(templates []ritual.Template) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(templates))

	for _, t := range templates {
		field := "ritual." + t.Name

		if !namePattern.MatchString(t.Name) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("name %q must match %s", t.Name, namePattern),
				Code:    ErrInvalidName,
			})
		}

		if seen[t.Name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("ritual %q is defined more than once", t.Name),
				Code:    ErrDuplicateName,
			})
		}
		seen[t.Name] = true

		if strings.TrimSpace(t.Text) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".text",
				Message: "text is required and must be non-empty",
				Code:    ErrEmptyText,
			})
		}
	}

	return errs
}

// Catalog validates templates and builds a catalog from them.
func Catalog(templates []ritual.Template) (*ritual.Catalog, []ValidationError) {
	if errs := Validate(templates); len(errs) > 0 {
		return nil, errs
	}
	c, err := ritual.NewCatalog(templates...)
	if err != nil {
		return nil, []ValidationError{{Field: "catalog", Message: err.Error(), Code: ErrDuplicateName}}
	}
	return c, nil
}
