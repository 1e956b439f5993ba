// =============================================================================
// NAACCR Flat/XML Converter - Validation Engine
// =============================================================================
//
// This module checks NAACCR XML item values against the flat layout before
// they are written to a fixed-width line. A value that does not fit is still
// written, in the adjusted form described below, and reported as a warning.
//
// RULES:
//   - length:     the value is longer than its field; it is truncated
//   - line_break: the value contains a line break; it is replaced by a space
//
// Items the layout does not define are not reported here; the converter
// skips them and reports them once per document.
//
// ERROR HANDLING:
//   - Findings are collected, not thrown
//   - Each finding carries the structural path, the item and its value
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ginjaninja78/naaccr-flat-xml/internal/dictionary"
	"github.com/ginjaninja78/naaccr-flat-xml/internal/flatfile"
	"github.com/ginjaninja78/naaccr-flat-xml/internal/naaccrxml"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// SeverityWarning is the severity of every finding: values are adjusted,
// never rejected.
const SeverityWarning = "warning"

// Rule names.
const (
	RuleLength    = "length"
	RuleLineBreak = "line_break"
)

// ValidationError represents a single validation finding.
type ValidationError struct {
	// Severity is always SeverityWarning.
	Severity string

	// Path is the structural location, e.g. "NaaccrData/Patient[2]/Tumor[1]".
	Path string

	// Field is the NAACCR item identifier.
	Field string

	// Value is the value as found in the document.
	Value string

	// Rule is the rule that was violated.
	Rule string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s, Field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity),
		e.Path,
		e.Field,
		e.Message,
		e.Value,
	)
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator checks item values against a flat layout.
type Validator struct {
	layout *flatfile.Layout
}

// NewValidator creates a Validator for layout.
func NewValidator(layout *flatfile.Layout) *Validator {
	return &Validator{layout: layout}
}

// ValidateItems validates every item found at path.
func (v *Validator) ValidateItems(path string, items []naaccrxml.Item) []*ValidationError {
	var errs []*ValidationError
	for _, item := range items {
		errs = append(errs, v.ValidateItem(path, item)...)
	}
	return errs
}

// ValidateItem validates one item. Unknown items yield nothing.
func (v *Validator) ValidateItem(path string, item naaccrxml.Item) []*ValidationError {
	field, ok := v.layout.Field(dictionary.TruncateID(item.ID))
	if !ok {
		return nil
	}

	var errs []*ValidationError
	if strings.ContainsAny(item.Value, "\r\n") {
		errs = append(errs, v.finding(path, item, RuleLineBreak,
			"value contains a line break; replaced by a space"))
	}
	if n := utf8.RuneCountInString(item.Value); n > field.Length {
		errs = append(errs, v.finding(path, item, RuleLength,
			fmt.Sprintf("value is %d characters but the field length is %d; truncated", n, field.Length)))
	}
	return errs
}

func (v *Validator) finding(path string, item naaccrxml.Item, rule, message string) *ValidationError {
	return &ValidationError{
		Severity: SeverityWarning,
		Path:     path,
		Field:    item.ID,
		Value:    item.Value,
		Rule:     rule,
		Message:  message,
	}
}
