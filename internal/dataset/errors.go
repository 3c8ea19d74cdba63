package dataset

import "fmt"

// ParseError indicates the uploaded bytes are not well-formed delimited text.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse csv: line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("parse csv: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MissingColumnError indicates a required column is absent from the header.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required column %q", e.Column)
}

// TypeCoercionError indicates a value in a typed column could not be converted.
type TypeCoercionError struct {
	Column string
	Row    int // 1-based data row, header excluded
	Value  string
	Err    error
}

func (e *TypeCoercionError) Error() string {
	return fmt.Sprintf("column %q row %d: cannot parse %q as a timestamp", e.Column, e.Row, e.Value)
}

func (e *TypeCoercionError) Unwrap() error { return e.Err }

// InvalidFieldError indicates a caller asked for a column the dataset does not have.
type InvalidFieldError struct {
	Field string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", e.Field)
}
