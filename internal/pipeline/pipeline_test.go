package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/absurd-lang/relbuild/internal/artifact"
	"github.com/absurd-lang/relbuild/internal/platform"
	"github.com/absurd-lang/relbuild/internal/target"
	"github.com/absurd-lang/relbuild/internal/toolchain"
)

var (
	linuxAMD64   = platform.Platform{OS: platform.Linux, Arch: platform.AMD64}
	windowsAMD64 = platform.Platform{OS: platform.Windows, Arch: platform.AMD64}
	darwinARM64  = platform.Platform{OS: platform.Darwin, Arch: platform.ARM64}
)

// recordingSteps records which steps ran and fails the ones configured to.
type recordingSteps struct {
	calls []string
	fail  map[string]error
}

func (s *recordingSteps) EnsureTargetInstalled(_ context.Context, triple string) error {
	s.calls = append(s.calls, "install:"+triple)
	return s.fail["install"]
}

func (s *recordingSteps) Build(_ context.Context, cfg target.TargetConfig) error {
	s.calls = append(s.calls, "build:"+cfg.Triple)
	return s.fail["build"]
}

func (s *recordingSteps) StripSymbols(_ context.Context, path string) error {
	s.calls = append(s.calls, "strip:"+filepath.ToSlash(path))
	return s.fail["strip"]
}

func fakeReport(called *bool) func(string, string) (*artifact.SizeReport, error) {
	return func(_, display string) (*artifact.SizeReport, error) {
		*called = true
		return &artifact.SizeReport{Path: display, Bytes: 1048576, Megabytes: 1}, nil
	}
}

func TestRun_BuildFailureShortCircuits(t *testing.T) {
	buildErr := &toolchain.Error{Kind: toolchain.KindBuildFailed, Stage: toolchain.StageBuild, ExitCode: 101}
	steps := &recordingSteps{fail: map[string]error{"build": buildErr}}
	reported := false

	p := &Pipeline{
		Platform:   linuxAMD64,
		Steps:      steps,
		Out:        &bytes.Buffer{},
		ReportSize: fakeReport(&reported),
	}
	_, err := p.Run(context.Background())
	if !errors.Is(err, toolchain.ErrBuildFailed) {
		t.Fatalf("error = %v, want ErrBuildFailed", err)
	}

	want := []string{"install:x86_64-unknown-linux-gnu", "build:x86_64-unknown-linux-gnu"}
	if !reflect.DeepEqual(steps.calls, want) {
		t.Errorf("calls = %v, want %v", steps.calls, want)
	}
	if reported {
		t.Error("ReportSize ran after a build failure")
	}
	if got := ExitCode(err); got != 101 {
		t.Errorf("ExitCode = %d, want 101", got)
	}
}

func TestRun_InstallFailureShortCircuits(t *testing.T) {
	steps := &recordingSteps{fail: map[string]error{
		"install": &toolchain.Error{Kind: toolchain.KindInstallFailed, ExitCode: 1},
	}}
	reported := false
	p := &Pipeline{Platform: linuxAMD64, Steps: steps, Out: &bytes.Buffer{}, ReportSize: fakeReport(&reported)}

	_, err := p.Run(context.Background())
	if !errors.Is(err, toolchain.ErrInstallFailed) {
		t.Fatalf("error = %v, want ErrInstallFailed", err)
	}
	if len(steps.calls) != 1 || reported {
		t.Errorf("later stages ran: calls=%v reported=%v", steps.calls, reported)
	}
}

func TestRun_StripFailureIsFatal(t *testing.T) {
	steps := &recordingSteps{fail: map[string]error{
		"strip": &toolchain.Error{Kind: toolchain.KindStripFailed, ExitCode: 1},
	}}
	reported := false
	p := &Pipeline{Platform: linuxAMD64, Steps: steps, Out: &bytes.Buffer{}, ReportSize: fakeReport(&reported)}

	_, err := p.Run(context.Background())
	if !errors.Is(err, toolchain.ErrStripFailed) {
		t.Fatalf("error = %v, want ErrStripFailed", err)
	}
	if reported {
		t.Error("ReportSize ran after a strip failure")
	}
}

func TestRun_NoStripGoesStraightToReport(t *testing.T) {
	for _, p := range []platform.Platform{windowsAMD64, darwinARM64} {
		t.Run(p.String(), func(t *testing.T) {
			steps := &recordingSteps{}
			reported := false
			pl := &Pipeline{Platform: p, Steps: steps, Out: &bytes.Buffer{}, ReportSize: fakeReport(&reported)}

			if _, err := pl.Run(context.Background()); err != nil {
				t.Fatalf("Run error: %v", err)
			}
			for _, c := range steps.calls {
				if strings.HasPrefix(c, "strip:") {
					t.Errorf("strip ran on %s", p)
				}
			}
			if !reported {
				t.Error("ReportSize did not run")
			}
		})
	}
}

func TestRun_NoStripOption(t *testing.T) {
	steps := &recordingSteps{}
	reported := false
	p := &Pipeline{
		Platform:   linuxAMD64,
		Options:    target.Options{NoStrip: true},
		Steps:      steps,
		Out:        &bytes.Buffer{},
		ReportSize: fakeReport(&reported),
	}
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := []string{"install:x86_64-unknown-linux-gnu", "build:x86_64-unknown-linux-gnu"}
	if !reflect.DeepEqual(steps.calls, want) {
		t.Errorf("calls = %v, want %v", steps.calls, want)
	}
}

func TestRun_UnsupportedPlatform(t *testing.T) {
	steps := &recordingSteps{}
	p := &Pipeline{Platform: platform.Platform{OS: "freebsd", Arch: platform.AMD64}, Steps: steps, Out: &bytes.Buffer{}}

	_, err := p.Run(context.Background())
	if !errors.Is(err, target.ErrUnsupportedPlatform) {
		t.Fatalf("error = %v, want ErrUnsupportedPlatform", err)
	}
	if len(steps.calls) != 0 {
		t.Errorf("steps ran for unsupported platform: %v", steps.calls)
	}
	if got := ExitCode(err); got != ExitFailure {
		t.Errorf("ExitCode = %d, want %d", got, ExitFailure)
	}
}

func TestRun_MissingArtifactIsReported(t *testing.T) {
	var out bytes.Buffer
	p := &Pipeline{Platform: linuxAMD64, Steps: &recordingSteps{}, Dir: t.TempDir(), Out: &out}

	_, err := p.Run(context.Background())
	if !errors.Is(err, artifact.ErrNotFound) {
		t.Fatalf("error = %v, want artifact.ErrNotFound", err)
	}
	if !strings.Contains(out.String(), ">>> target/x86_64-unknown-linux-gnu/release/absurd does not exist.\n") {
		t.Errorf("missing-artifact diagnostic not printed:\n%s", out.String())
	}
	if got := ExitCode(err); got != ExitFailure {
		t.Errorf("ExitCode = %d, want %d", got, ExitFailure)
	}
}

func TestRun_CanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	steps := &recordingSteps{}
	p := &Pipeline{Platform: linuxAMD64, Steps: steps, Out: &bytes.Buffer{}}
	_, err := p.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if len(steps.calls) != 0 {
		t.Errorf("steps ran after cancel: %v", steps.calls)
	}
	if got := ExitCode(err); got != ExitInterrupted {
		t.Errorf("ExitCode = %d, want %d", got, ExitInterrupted)
	}
}

func TestRun_NoSteps(t *testing.T) {
	if _, err := (&Pipeline{Platform: linuxAMD64}).Run(context.Background()); err == nil {
		t.Fatal("expected error without a toolchain")
	}
}

// buildingRunner is a toolchain.Runner that writes the artifact when cargo
// builds, so the real ReportSize can find it.
type buildingRunner struct {
	t        *testing.T
	artifact string
	size     int64
	commands []toolchain.Command
}

func (r *buildingRunner) Run(_ context.Context, c toolchain.Command) (*toolchain.Result, error) {
	r.commands = append(r.commands, c)
	if c.Name == "cargo" {
		path := filepath.Join(c.Dir, filepath.FromSlash(r.artifact))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			r.t.Fatal(err)
		}
		if err := os.WriteFile(path, bytes.Repeat([]byte{0x7f}, int(r.size)), 0755); err != nil {
			r.t.Fatal(err)
		}
	}
	return &toolchain.Result{}, nil
}

func TestEndToEnd_Linux(t *testing.T) {
	dir := t.TempDir()
	r := &buildingRunner{t: t, artifact: "target/x86_64-unknown-linux-gnu/release/absurd", size: 1048576}
	tc := toolchain.New(r)
	tc.Dir = dir

	var out bytes.Buffer
	p := &Pipeline{Platform: linuxAMD64, Steps: tc, Dir: dir, Out: &out}
	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	want := []toolchain.Command{
		{Name: "rustup", Args: []string{"target", "add", "x86_64-unknown-linux-gnu"}, Dir: dir},
		{Name: "cargo", Args: []string{"build", "--release", "--target", "x86_64-unknown-linux-gnu"}, Dir: dir},
		{Name: "strip", Args: []string{filepath.FromSlash("target/x86_64-unknown-linux-gnu/release/absurd")}, Dir: dir},
	}
	if !reflect.DeepEqual(r.commands, want) {
		t.Errorf("commands =\n%+v\nwant\n%+v", r.commands, want)
	}
	if report.Path != "target/x86_64-unknown-linux-gnu/release/absurd" {
		t.Errorf("report.Path = %q", report.Path)
	}
	if report.Megabytes != 1.00 {
		t.Errorf("report.Megabytes = %v", report.Megabytes)
	}

	wantOut := ">>> verifying the toolchains...\n" +
		">>> building binaries for Linux...\n" +
		">>> stripping target/x86_64-unknown-linux-gnu/release/absurd...\n" +
		">>> target/x86_64-unknown-linux-gnu/release/absurd size: 1.00 MB\n"
	if out.String() != wantOut {
		t.Errorf("output =\n%s\nwant\n%s", out.String(), wantOut)
	}
}

func TestEndToEnd_NonLinux(t *testing.T) {
	dir := t.TempDir()
	r := &buildingRunner{t: t, artifact: "target/release/absurd.exe", size: 2 * 1048576}
	tc := toolchain.New(r)
	tc.Dir = dir

	var out bytes.Buffer
	p := &Pipeline{Platform: windowsAMD64, Steps: tc, Dir: dir, Out: &out}
	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	want := []toolchain.Command{
		{Name: "rustup", Args: []string{"target", "add", "x86_64-pc-windows-gnu"}, Dir: dir},
		{Name: "cargo", Args: []string{"build", "--release"}, Dir: dir},
	}
	if !reflect.DeepEqual(r.commands, want) {
		t.Errorf("commands =\n%+v\nwant\n%+v", r.commands, want)
	}
	if report.Path != "target/release/absurd.exe" {
		t.Errorf("report.Path = %q", report.Path)
	}
	if !strings.HasSuffix(out.String(), ">>> target/release/absurd.exe size: 2.00 MB\n") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestEndToEnd_KVFormat(t *testing.T) {
	dir := t.TempDir()
	r := &buildingRunner{t: t, artifact: "target/release/absurd", size: 1048576}
	tc := toolchain.New(r)
	tc.Dir = dir

	var out bytes.Buffer
	p := &Pipeline{Platform: darwinARM64, Steps: tc, Dir: dir, Out: &out, Format: FormatKV}
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 records, got %d:\n%s", len(lines), out.String())
	}
	for _, want := range []string{"stage=install", "stage=build", "stage=report"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output lacks %q:\n%s", want, out.String())
		}
	}
	last := lines[len(lines)-1]
	for _, want := range []string{"bytes=1048576", "megabytes=1.00", "path=target/release/absurd"} {
		if !strings.Contains(last, want) {
			t.Errorf("report record %q lacks %q", last, want)
		}
	}
	if strings.Contains(out.String(), ">>>") {
		t.Error("kv output contains text progress lines")
	}
}
