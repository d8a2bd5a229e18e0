package pipeline

import (
	"context"
	"errors"

	"github.com/absurd-lang/relbuild/internal/toolchain"
)

// Process exit codes for failures that carry no subprocess status.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitTimeout     = 124
	ExitNotFound    = 127
	ExitInterrupted = 130
)

// ExitCode maps a Run error to a process exit status. A failed subprocess's
// own exit status is propagated.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ExitTimeout
	}

	var tcErr *toolchain.Error
	if errors.As(err, &tcErr) {
		if tcErr.Kind == toolchain.KindNotFound {
			return ExitNotFound
		}
		if tcErr.ExitCode > 0 {
			return tcErr.ExitCode
		}
	}
	return ExitFailure
}
