package toolchain

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"github.com/absurd-lang/relbuild/internal/target"
	"github.com/sirupsen/logrus"
)

// Default executable names.
const (
	DefaultCargo  = "cargo"
	DefaultRustup = "rustup"
	DefaultStrip  = "strip"
)

// Stage names used in errors and logs.
const (
	StageInstall = "install target"
	StageBuild   = "build"
	StageStrip   = "strip symbols"
)

// Toolchain issues rustup, cargo, and strip invocations through a Runner.
type Toolchain struct {
	Runner Runner

	Cargo  string
	Rustup string
	Strip  string

	// Dir is the source tree root every command runs in.
	Dir string
	// Timeout bounds each subprocess. Zero means no limit.
	Timeout time.Duration
	// Env holds KEY=VALUE pairs added to every subprocess environment,
	// e.g. RUSTFLAGS or RUSTUP_TOOLCHAIN.
	Env []string

	Log logrus.FieldLogger
}

// New returns a Toolchain with default executable names.
func New(r Runner) *Toolchain {
	return &Toolchain{
		Runner: r,
		Cargo:  DefaultCargo,
		Rustup: DefaultRustup,
		Strip:  DefaultStrip,
	}
}

// EnsureTargetInstalled runs `rustup target add <triple>`. An empty triple
// is a no-op.
func (t *Toolchain) EnsureTargetInstalled(ctx context.Context, triple string) error {
	if triple == "" {
		return nil
	}
	c := Command{Name: orDefault(t.Rustup, DefaultRustup), Args: []string{"target", "add", triple}, Dir: t.Dir, Env: t.Env}
	return t.run(ctx, StageInstall, KindInstallFailed, c)
}

// Build runs `cargo build --release`, adding `--target <triple>` when the
// config names one.
func (t *Toolchain) Build(ctx context.Context, cfg target.TargetConfig) error {
	args := []string{"build", "--release"}
	if cfg.Triple != "" {
		args = append(args, "--target", cfg.Triple)
	}
	c := Command{Name: orDefault(t.Cargo, DefaultCargo), Args: args, Dir: t.Dir, Env: t.Env}
	return t.run(ctx, StageBuild, KindBuildFailed, c)
}

// StripSymbols runs the stripper against path, which is relative to Dir.
func (t *Toolchain) StripSymbols(ctx context.Context, path string) error {
	c := Command{Name: orDefault(t.Strip, DefaultStrip), Args: []string{path}, Dir: t.Dir, Env: t.Env}
	return t.run(ctx, StageStrip, KindStripFailed, c)
}

func (t *Toolchain) run(ctx context.Context, stage string, kind Kind, c Command) error {
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	log := t.logger().WithFields(logrus.Fields{
		"stage":   stage,
		"command": c.Name,
		"args":    c.Args,
	})
	log.Debug("running command")

	start := time.Now()
	res, err := t.Runner.Run(ctx, c)
	elapsed := time.Since(start)

	if err != nil {
		if missingExecutable(c, err) {
			log.WithError(err).Debug("executable not found")
			return &Error{Kind: KindNotFound, Stage: stage, Command: c, ExitCode: -1, Err: err}
		}
		log.WithError(err).WithField("elapsed", elapsed).Debug("command did not complete")
		e := &Error{Kind: kind, Stage: stage, Command: c, ExitCode: -1, Err: err}
		if res != nil {
			e.Output = capturedOutput(res)
		}
		return e
	}

	log = log.WithFields(logrus.Fields{"exit_code": res.ExitCode, "elapsed": elapsed})
	if res.ExitCode != 0 {
		log.Debug("command failed")
		return &Error{Kind: kind, Stage: stage, Command: c, ExitCode: res.ExitCode, Output: capturedOutput(res)}
	}
	log.Debug("command succeeded")
	return nil
}

func (t *Toolchain) logger() logrus.FieldLogger {
	if t.Log != nil {
		return t.Log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func capturedOutput(res *Result) string {
	if res.Stderr != "" {
		return res.Stderr
	}
	return res.Stdout
}

// missingExecutable reports whether err means c.Name itself could not be
// found. A missing working directory is not a missing executable.
func missingExecutable(c Command, err error) bool {
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	if !strings.ContainsAny(c.Name, `/\`) {
		return false
	}
	var pe *fs.PathError
	return errors.As(err, &pe) && pe.Path == c.Name && errors.Is(pe.Err, fs.ErrNotExist)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// LookPath reports where name resolves on PATH.
func LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
