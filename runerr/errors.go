package runerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide what to report.
// None of the kinds are retried here; task-level retries belong to the platform.
type Kind string

const (
	KindConfig       Kind = "config"
	KindProvisioning Kind = "provisioning"
	KindStaging      Kind = "staging"
	KindExecution    Kind = "execution"
	KindUpload       Kind = "upload"
)

// Error is a failure of one stage of a run, with the stage that produced it
type Error struct {
	Kind     Kind
	Context  string
	Err      error
	ExitCode int // only set for KindExecution
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v error: %v", e.Kind, e.Context)
	}
	return fmt.Sprintf("%v error: %v: %v", e.Kind, e.Context, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error, f string, v ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Context: fmt.Sprintf(f, v...),
		Err:     err,
	}
}

// Config returns a configuration error: missing or malformed parameters,
// duplicate parameter names, missing credentials.
func Config(err error, f string, v ...interface{}) error {
	return newError(KindConfig, err, f, v...)
}

// Provisioning returns a storage provisioning error
func Provisioning(err error, f string, v ...interface{}) error {
	return newError(KindProvisioning, err, f, v...)
}

// Staging returns a workspace staging error
func Staging(err error, f string, v ...interface{}) error {
	return newError(KindStaging, err, f, v...)
}

// Execution returns an error for a pipeline process that did not exit cleanly.
// exitCode is -1 when the process never produced one.
func Execution(err error, exitCode int, f string, v ...interface{}) error {
	e := newError(KindExecution, err, f, v...)
	e.ExitCode = exitCode
	return e
}

// Upload returns a log upload error
func Upload(err error, f string, v ...interface{}) error {
	return newError(KindUpload, err, f, v...)
}

// Is reports whether any error in err's chain is an *Error of the given kind.
// Composed errors (see hashicorp/go-multierror) are searched as well.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	var target *Error
	if errors.As(err, &target) && target.Kind == kind {
		return true
	}
	if m, ok := err.(interface{ WrappedErrors() []error }); ok {
		for _, e := range m.WrappedErrors() {
			if Is(e, kind) {
				return true
			}
		}
	}
	return false
}

// ExitCode returns the exit code of the first execution error in err's chain,
// or 0 when there is none.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var target *Error
	if errors.As(err, &target) && target.Kind == KindExecution {
		return target.ExitCode
	}
	if m, ok := err.(interface{ WrappedErrors() []error }); ok {
		for _, e := range m.WrappedErrors() {
			if code := ExitCode(e); code != 0 {
				return code
			}
		}
	}
	return 0
}
