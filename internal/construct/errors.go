package construct

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateLogicalID = errors.New("duplicate logical id")
	ErrDuplicateStack     = errors.New("duplicate stack")
	ErrDanglingReference  = errors.New("dangling reference")
	ErrInvalidName        = errors.New("invalid name")
)

// ConstructError wraps an error with the construct path that produced it.
type ConstructError struct {
	Path []string
	Err  error
}

func (e *ConstructError) Error() string {
	return fmt.Sprintf("%s: %v", strings.Join(e.Path, "/"), e.Err)
}

func (e *ConstructError) Unwrap() error {
	return e.Err
}

// Errorf returns a ConstructError for path with a formatted cause.
func Errorf(path []string, format string, args ...any) error {
	return &ConstructError{Path: path, Err: fmt.Errorf(format, args...)}
}
