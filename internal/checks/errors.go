package checks

import (
	"errors"
	"fmt"
)

// ErrFindings is returned by RunAll when at least one error finding was
// reported.
var ErrFindings = errors.New("template has errors")

// CheckError wraps an error with the check that produced it.
type CheckError struct {
	Check string
	Err   error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("%s: %v", e.Check, e.Err)
}

func (e *CheckError) Unwrap() error {
	return e.Err
}
