package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/absurd-lang/relbuild/internal/artifact"
	"github.com/absurd-lang/relbuild/internal/platform"
	"github.com/absurd-lang/relbuild/internal/target"
	"github.com/sirupsen/logrus"
)

// Steps is the toolchain surface the pipeline drives.
// *toolchain.Toolchain implements it.
type Steps interface {
	EnsureTargetInstalled(ctx context.Context, triple string) error
	Build(ctx context.Context, cfg target.TargetConfig) error
	StripSymbols(ctx context.Context, path string) error
}

// Stage identifies a pipeline step.
type Stage string

const (
	StageResolve Stage = "resolve"
	StageInstall Stage = "install"
	StageBuild   Stage = "build"
	StageStrip   Stage = "strip"
	StageReport  Stage = "report"
)

// Pipeline holds everything one run needs. Zero-valued hooks fall back to
// the real implementations.
type Pipeline struct {
	Platform platform.Platform
	Options  target.Options
	Steps    Steps

	// Dir is the source tree root. Empty means the current directory.
	Dir string

	// Out receives progress lines. Defaults to os.Stdout.
	Out    io.Writer
	Format Format

	Log logrus.FieldLogger

	// Resolve and ReportSize default to target.Resolve and artifact.ReportSize.
	Resolve    func(platform.Platform, target.Options) (target.TargetConfig, error)
	ReportSize func(path, display string) (*artifact.SizeReport, error)
}

// Run executes the pipeline and returns the size report of the artifact.
func (p *Pipeline) Run(ctx context.Context) (*artifact.SizeReport, error) {
	if p.Steps == nil {
		return nil, errors.New("pipeline has no toolchain")
	}
	pr := newProgress(p.out(), p.Format)
	log := p.logger()

	resolve := p.Resolve
	if resolve == nil {
		resolve = target.Resolve
	}
	cfg, err := resolve(p.Platform, p.Options)
	if err != nil {
		return nil, fmt.Errorf("resolving target for %s: %w", p.Platform, err)
	}
	log.WithFields(logrus.Fields{
		"platform": cfg.Platform.String(),
		"triple":   cfg.Triple,
		"install":  cfg.InstallTriple,
		"artifact": cfg.ArtifactPath(),
		"strip":    cfg.Strip,
	}).Debug("resolved target")

	if err := checkContext(ctx, StageInstall); err != nil {
		return nil, err
	}
	pr.stage(StageInstall, "verifying the toolchains...", logrus.Fields{"triple": cfg.InstallTriple})
	if err := p.Steps.EnsureTargetInstalled(ctx, cfg.InstallTriple); err != nil {
		return nil, err
	}

	if err := checkContext(ctx, StageBuild); err != nil {
		return nil, err
	}
	pr.stage(StageBuild, fmt.Sprintf("building binaries for %s...", cfg.Platform.DisplayName()),
		logrus.Fields{"platform": cfg.Platform.String(), "triple": cfg.Triple})
	if err := p.Steps.Build(ctx, cfg); err != nil {
		return nil, err
	}

	display := cfg.ArtifactPath()
	if cfg.Strip {
		if err := checkContext(ctx, StageStrip); err != nil {
			return nil, err
		}
		pr.stage(StageStrip, fmt.Sprintf("stripping %s...", display), logrus.Fields{"path": display})
		if err := p.Steps.StripSymbols(ctx, filepath.FromSlash(display)); err != nil {
			return nil, err
		}
	} else {
		log.WithField("platform", cfg.Platform.String()).Debug("strip not enabled for target, skipping")
	}

	reportSize := p.ReportSize
	if reportSize == nil {
		reportSize = artifact.ReportSize
	}
	report, err := reportSize(filepath.Join(p.Dir, filepath.FromSlash(display)), display)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			pr.missing(display)
		}
		return nil, err
	}
	pr.report(report)
	return report, nil
}

func checkContext(ctx context.Context, next Stage) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("stopped before %s: %w", next, err)
	}
	return nil
}

func (p *Pipeline) out() io.Writer {
	if p.Out != nil {
		return p.Out
	}
	return os.Stdout
}

func (p *Pipeline) logger() logrus.FieldLogger {
	if p.Log != nil {
		return p.Log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
