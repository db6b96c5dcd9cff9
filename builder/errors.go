package builder

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration        = errors.New("configuration error")
	ErrToolchainFailure     = errors.New("toolchain failure")
	ErrArchitectureMismatch = errors.New("architecture mismatch")
	ErrInterpreterNotFound  = errors.New("dynamic linker not found")
	ErrEmulationFailure     = errors.New("emulation failure")
)

// ToolError reports a subprocess that exited unsuccessfully. Output holds the
// tool's own diagnostics exactly as it printed them. Streamed is set when
// Output was also written to the caller's terminal while the tool ran.
type ToolError struct {
	Kind     error
	Tool     string
	Args     []string
	ExitCode int
	Output   string
	Streamed bool
}

func (e *ToolError) Error() string {
	msg := e.Summary()
	if out := strings.TrimRight(e.Output, "\n"); len(out) > 0 {
		msg += "\n" + out
	}
	return msg
}

// Summary is the first line of Error, without the tool's output.
func (e *ToolError) Summary() string {
	return fmt.Sprintf("%v: %s exited with status %d", e.Kind, e.Tool, e.ExitCode)
}

func (e *ToolError) Unwrap() error {
	return e.Kind
}

// MismatchError is returned by VerifyArchitecture.
type MismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%v: %s is %s, expected %s", ErrArchitectureMismatch, e.Path, e.Actual, e.Expected)
}

func (e *MismatchError) Unwrap() error {
	return ErrArchitectureMismatch
}

// InspectError is returned by VerifyArchitecture when the binary's header
// could not be read at all.
type InspectError struct {
	Path string
	Err  error
}

func (e *InspectError) Error() string {
	return fmt.Sprintf("%v: cannot inspect %s: %v", ErrArchitectureMismatch, e.Path, e.Err)
}

func (e *InspectError) Unwrap() []error {
	return []error{ErrArchitectureMismatch, e.Err}
}

func configError(format string, args ...any) error {
	return errors.Join(ErrConfiguration, fmt.Errorf(format, args...))
}

// IsBuildError reports whether err belongs to the build category.
func IsBuildError(err error) bool {
	return errors.Is(err, ErrToolchainFailure) || errors.Is(err, ErrArchitectureMismatch)
}

// IsRunError reports whether err belongs to the run category.
func IsRunError(err error) bool {
	return errors.Is(err, ErrInterpreterNotFound) || errors.Is(err, ErrEmulationFailure)
}
