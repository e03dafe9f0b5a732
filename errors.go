package blade

import (
	"errors"
	"fmt"
)

var (
	// ErrTemplateNotFound is returned when a root template, layout or
	// partial does not exist in the views FS.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrInvalidName is returned for empty names or names escaping the
	// views root.
	ErrInvalidName = errors.New("invalid template name")
	// ErrRecursionLimit is returned when layouts or includes nest deeper
	// than the engine's max depth, usually because of a cycle.
	ErrRecursionLimit = errors.New("template recursion limit exceeded")
)

// TemplateError reports a failure tied to one template.
type TemplateError struct {
	Name string
	Path string
	Err  error
}

func (e *TemplateError) Error() string {
	switch {
	case e.Name != "" && e.Path != "":
		return fmt.Sprintf("blade: %s (%s): %v", e.Name, e.Path, e.Err)
	case e.Name != "":
		return fmt.Sprintf("blade: %s: %v", e.Name, e.Err)
	case e.Path != "":
		return fmt.Sprintf("blade: %s: %v", e.Path, e.Err)
	}
	return "blade: " + e.Err.Error()
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}
