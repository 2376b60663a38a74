package install

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrAgentUnreachable means the guest agent did not answer within the
	// allotted time after a boot or reboot. It aborts the whole run.
	ErrAgentUnreachable = errors.New("guest agent unreachable")

	// ErrDependencyCycle means the catalogue declares sub-dependencies that
	// lead back to a dependency being expanded.
	ErrDependencyCycle = errors.New("dependency cycle")
)

// InstallError reports a request that cannot be installed: validation
// failures before anything runs, and failures of a single dependency
// while the run continues.
type InstallError struct {
	// Name is the dependency the error is about, if there is one.
	Name string
	Err  error
}

func (e *InstallError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("install error: %s", e.Err)
	}
	return fmt.Sprintf("installing '%s': %s", e.Name, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }

func newInstallError(name string, err error) error {
	return errors.WithStack(&InstallError{Name: name, Err: err})
}

func installErrorf(name, format string, args ...interface{}) error {
	return newInstallError(name, errors.Errorf(format, args...))
}

// IsInstallError reports whether err is or wraps an InstallError.
func IsInstallError(err error) bool {
	var installErr *InstallError
	return errors.As(err, &installErr)
}

// IsAgentUnreachable reports whether err is the fatal unreachable agent
// condition.
func IsAgentUnreachable(err error) bool {
	return errors.Is(err, ErrAgentUnreachable)
}
