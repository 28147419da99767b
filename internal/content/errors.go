package content

import "fmt"

// UnknownSectionError is returned when a section name is not part of the document.
type UnknownSectionError struct {
	Name string
}

func (e *UnknownSectionError) Error() string {
	return fmt.Sprintf("unknown section: %q", e.Name)
}

// UnknownSettingError is returned when a settings key does not exist.
type UnknownSettingError struct {
	Key string
}

func (e *UnknownSettingError) Error() string {
	return fmt.Sprintf("unknown setting: %q", e.Key)
}

// DecodeError wraps a JSON decoding failure for a document or one of its sections.
type DecodeError struct {
	Section string // empty for the whole document
	Cause   error
}

func (e *DecodeError) Error() string {
	if e.Section == "" {
		return fmt.Sprintf("failed to decode document: %v", e.Cause)
	}
	return fmt.Sprintf("failed to decode section %s: %v", e.Section, e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// ValidationError lists field-level problems found in a document.
type ValidationError struct {
	Fields []FieldError
}

// FieldError is a single invalid field
type FieldError struct {
	Field string
	Rule  string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	first := e.Fields[0]
	if len(e.Fields) == 1 {
		return fmt.Sprintf("validation failed: %s (%s)", first.Field, first.Rule)
	}
	return fmt.Sprintf("validation failed: %s (%s) and %d more", first.Field, first.Rule, len(e.Fields)-1)
}
