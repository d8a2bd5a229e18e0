package target

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/absurd-lang/relbuild/internal/branding"
	"github.com/absurd-lang/relbuild/internal/platform"
)

// ErrUnsupportedPlatform is returned when no table entry matches the host.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

const exeSuffix = ".exe"

// TargetConfig is the resolved build configuration for one run.
type TargetConfig struct {
	Platform   platform.Platform
	PlatformID platform.ID

	// Triple is passed to `cargo build --target`. Empty means a native build.
	Triple string
	// InstallTriple is passed to `rustup target add`. Empty skips installation.
	InstallTriple string

	// OutputSubpath is the slash-separated directory, relative to the
	// source tree root, that holds the release artifact.
	OutputSubpath string
	BinaryName    string

	// Strip is true when the artifact should be stripped after building.
	Strip bool
}

// ArtifactPath returns the slash-separated artifact path relative to the
// source tree root.
func (c TargetConfig) ArtifactPath() string {
	return path.Join(c.OutputSubpath, c.BinaryName)
}

// Options adjusts how a table entry becomes a TargetConfig.
type Options struct {
	// BinaryName overrides the product binary base name. An .exe suffix is
	// added or removed to match the platform.
	BinaryName string
	// NoStrip disables the strip step even where the platform supports it.
	NoStrip bool
}

// Resolve returns the TargetConfig for p from the embedded table.
func Resolve(p platform.Platform, opts Options) (TargetConfig, error) {
	t, err := DefaultTable()
	if err != nil {
		return TargetConfig{}, err
	}
	return t.Resolve(p, opts)
}

// Resolve returns the TargetConfig for p.
func (t *Table) Resolve(p platform.Platform, opts Options) (TargetConfig, error) {
	e, ok := t.Lookup(p)
	if !ok {
		return TargetConfig{}, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, p)
	}

	installTriple := e.InstallTriple
	if installTriple == "" {
		installTriple = e.Triple
	}

	base := opts.BinaryName
	if base == "" {
		base = branding.ProductBinary()
	}

	return TargetConfig{
		Platform:      p,
		PlatformID:    p.ID(),
		Triple:        e.Triple,
		InstallTriple: installTriple,
		OutputSubpath: e.OutputSubpath,
		BinaryName:    BinaryName(base, p.OS),
		Strip:         e.Strip && !opts.NoStrip,
	}, nil
}

// BinaryName returns base with an .exe suffix on Windows-family hosts and
// without one everywhere else.
func BinaryName(base string, os platform.OS) string {
	base = strings.TrimSuffix(base, exeSuffix)
	if platform.IsWindowsFamily(os) {
		return base + exeSuffix
	}
	return base
}
