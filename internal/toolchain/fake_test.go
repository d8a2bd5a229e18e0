package toolchain

import (
	"context"
	"fmt"
	"os/exec"
)

// fakeRunner records commands and returns canned results keyed by command name.
type fakeRunner struct {
	calls   []Command
	results map[string]*Result
	errs    map[string]error
}

func (f *fakeRunner) Run(ctx context.Context, c Command) (*Result, error) {
	f.calls = append(f.calls, c)
	if err, ok := f.errs[c.Name]; ok {
		return nil, err
	}
	if res, ok := f.results[c.Name]; ok {
		return res, nil
	}
	return &Result{}, nil
}

func notFound(name string) error {
	return fmt.Errorf("starting %s: %w", name, &exec.Error{Name: name, Err: exec.ErrNotFound})
}
