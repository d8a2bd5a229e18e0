package toolchain

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var versionPattern = regexp.MustCompile(`\bv?(\d+\.\d+(?:\.\d+)?(?:-[0-9A-Za-z.-]+)?)\b`)

// Version runs `<name> --version` and parses the first version number in
// its output, e.g. "cargo 1.78.0 (54d8815d0 2024-03-26)" → 1.78.0.
func Version(ctx context.Context, r Runner, name string) (*semver.Version, error) {
	c := Command{Name: name, Args: []string{"--version"}}
	res, err := r.Run(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("running %s: %w", c, err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("%s exited with status %d", c, res.ExitCode)
	}
	return ParseVersionOutput(res.Stdout + res.Stderr)
}

// ParseVersionOutput extracts a semantic version from a tool's --version output.
func ParseVersionOutput(out string) (*semver.Version, error) {
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	m := versionPattern.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("no version number in %q", line)
	}
	v, err := semver.NewVersion(m[1])
	if err != nil {
		return nil, fmt.Errorf("parsing version %q: %w", m[1], err)
	}
	return v, nil
}

// CheckMinimum returns an error if v is older than minimum.
func CheckMinimum(v *semver.Version, minimum string) error {
	c, err := semver.NewConstraint(">= " + strings.TrimPrefix(minimum, "v"))
	if err != nil {
		return fmt.Errorf("parsing minimum version %q: %w", minimum, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("version %s is older than required %s", v, minimum)
	}
	return nil
}
