package schema

import (
	"errors"
	"fmt"
)

var ErrSchemaMismatch = errors.New("schema mismatch")

// SchemaError 指出出错的文件和列
type SchemaError struct {
	File   string
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	switch {
	case e.File != "" && e.Column != "":
		return fmt.Sprintf("schema mismatch in %s: column %q %s", e.File, e.Column, e.Reason)
	case e.Column != "":
		return fmt.Sprintf("schema mismatch: column %q %s", e.Column, e.Reason)
	default:
		return fmt.Sprintf("schema mismatch in %s: %s", e.File, e.Reason)
	}
}

func (e *SchemaError) Unwrap() error { return ErrSchemaMismatch }
