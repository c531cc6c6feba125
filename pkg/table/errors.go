package table

import (
	"errors"
	"fmt"
)

var ErrSchemaViolation = errors.New("schema violation")

// SchemaError reports a column that is absent or holds a value of the wrong
// type.
type SchemaError struct {
	Table  string
	Column string
	Reason string
}

func (e SchemaError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "required column missing"
	}
	return fmt.Sprintf("%s: table %q column %q: %s", ErrSchemaViolation, e.Table, e.Column, reason)
}

func (e SchemaError) Unwrap() error {
	return ErrSchemaViolation
}

func IsSchemaError(err error) bool {
	var se SchemaError
	return errors.As(err, &se)
}
