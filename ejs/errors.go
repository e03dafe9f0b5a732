package ejs

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax reports a template that cannot be parsed.
	ErrSyntax = errors.New("syntax error")
	// ErrNotIterable is returned when a for..of loop targets a scalar.
	ErrNotIterable = errors.New("value is not iterable")
	// ErrLoopLimit is returned when a loop exceeds the configured iteration cap.
	ErrLoopLimit = errors.New("loop iteration limit exceeded")
)

// Error locates a parse or evaluation failure inside a template.
type Error struct {
	Template string
	Line     int
	Err      error
}

func (e *Error) Error() string {
	name := e.Template
	if name == "" {
		name = "template"
	}
	return fmt.Sprintf("ejs: %s:%d: %v", name, e.Line, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func errorAt(line int, err error) error {
	var ejsErr *Error
	if errors.As(err, &ejsErr) {
		return err
	}
	return &Error{Line: line, Err: err}
}
