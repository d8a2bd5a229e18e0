package toolchain

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a toolchain failure.
type Kind int

const (
	// KindNotFound means the executable could not be located.
	KindNotFound Kind = iota + 1
	KindInstallFailed
	KindBuildFailed
	KindStripFailed
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindInstallFailed:
		return "target install failed"
	case KindBuildFailed:
		return "build failed"
	case KindStripFailed:
		return "strip failed"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. Every *Error matches the sentinel of its Kind.
var (
	ErrNotFound      = errors.New("toolchain executable not found")
	ErrInstallFailed = errors.New("toolchain target install failed")
	ErrBuildFailed   = errors.New("toolchain build failed")
	ErrStripFailed   = errors.New("toolchain strip failed")
)

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindInstallFailed:
		return ErrInstallFailed
	case KindBuildFailed:
		return ErrBuildFailed
	case KindStripFailed:
		return ErrStripFailed
	default:
		return nil
	}
}

// outputTailLines is how much captured stderr an Error message carries.
const outputTailLines = 5

// Error is a failed toolchain invocation.
type Error struct {
	Kind    Kind
	Stage   string
	Command Command
	// ExitCode is the subprocess exit status, or -1 if it never exited normally.
	ExitCode int
	// Output is the captured stderr, falling back to stdout when stderr is empty.
	Output string
	// Err is the underlying cause, if any (start failure, cancellation).
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s: ", e.Stage, e.Kind)
	switch {
	case e.Kind == KindNotFound:
		fmt.Fprintf(&b, "%q is not installed or not on PATH", e.Command.Name)
	case e.Err != nil:
		fmt.Fprintf(&b, "%s: %v", e.Command, e.Err)
	default:
		fmt.Fprintf(&b, "%s exited with status %d", e.Command, e.ExitCode)
	}
	if tail := lastLines(e.Output, outputTailLines); tail != "" {
		b.WriteString("\n")
		b.WriteString(tail)
	}
	return b.String()
}

// Unwrap exposes the Kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func lastLines(s string, n int) string {
	s = strings.TrimRight(s, "\r\n")
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
