package dependency

import (
	"fmt"

	"github.com/pkg/errors"
)

// DependencyError is returned by dependency logic when an install cannot
// be completed, such as an installer exiting with an unexpected code.
type DependencyError struct {
	Name    string
	Message string
	Cause   error
}

func (e *DependencyError) Error() string {
	msg := fmt.Sprintf("dependency '%s': %s", e.Name, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *DependencyError) Unwrap() error { return e.Cause }

// Errorf returns a DependencyError for the named dependency.
func Errorf(name, format string, args ...interface{}) error {
	return errors.WithStack(&DependencyError{Name: name, Message: fmt.Sprintf(format, args...)})
}

// WrapError returns a DependencyError caused by err, or nil if err is nil.
func WrapError(err error, name, message string) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&DependencyError{Name: name, Message: message, Cause: err})
}

// IsDependencyError reports whether err is or wraps a DependencyError.
func IsDependencyError(err error) bool {
	var depErr *DependencyError
	return errors.As(err, &depErr)
}
