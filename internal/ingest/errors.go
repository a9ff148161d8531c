package ingest

import "fmt"

// ConfigError marks a configuration defect that only shows at the point of
// use, such as a table template naming a capture the subject pattern never
// produces.
type ConfigError struct {
	Detail string
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Detail
}

// ParseError reports malformed CSV content or a cell that failed coercion.
// It aborts the message being processed.
type ParseError struct {
	Column string // empty for record-level failures
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("csv parse: %v", e.Err)
	}
	return fmt.Sprintf("csv column %q: cannot parse %q: %v", e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
