package world

import "fmt"

// MalformedWorldError reports a level that cannot be modelled.
type MalformedWorldError struct {
	Field  string
	Reason string
}

func (e *MalformedWorldError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("malformed world: missing %s", e.Field)
	}
	return fmt.Sprintf("malformed world: %s: %s", e.Field, e.Reason)
}

func missing(field string) error { return &MalformedWorldError{Field: field} }

func malformed(field, format string, args ...any) error {
	return &MalformedWorldError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
