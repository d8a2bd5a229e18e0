package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/absurd-lang/relbuild/internal/config"
	"github.com/absurd-lang/relbuild/internal/platform"
	"github.com/absurd-lang/relbuild/internal/target"
	"github.com/absurd-lang/relbuild/internal/toolchain"
	"github.com/spf13/cobra"
)

var doctorDir string

func init() {
	doctorCmd.Flags().StringVarP(&doctorDir, "dir", "C", "", "Source tree root (default: current directory)")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the toolchain and host are ready to build",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := sourceDir(doctorDir)
		if err != nil {
			return err
		}
		cfg, err := config.Load(dir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		settings, err := cfg.Settings()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		d := &doctor{
			out:    cmd.OutOrStdout(),
			runner: newRunner(io.Discard, io.Discard),
		}
		d.checkHost(platform.Detect(), settings)
		d.checkTools(cmd.Context(), settings)

		if d.problems > 0 {
			return fmt.Errorf("doctor found %d problem(s)", d.problems)
		}
		return nil
	},
}

type doctor struct {
	out      io.Writer
	runner   toolchain.Runner
	problems int
	strip    bool
}

func (d *doctor) checkHost(host platform.Platform, s *config.Settings) {
	fmt.Fprintln(d.out, "Host check:")
	cfg, err := target.Resolve(host, target.Options{NoStrip: !s.Strip})
	if err != nil {
		fmt.Fprintf(d.out, "  [FAIL] %v\n", err)
		d.problems++
		return
	}
	fmt.Fprintf(d.out, "  [ OK ] %s → %s\n", host, cfg.ArtifactPath())
	d.strip = cfg.Strip
}

func (d *doctor) checkTools(ctx context.Context, s *config.Settings) {
	fmt.Fprintln(d.out, "Toolchain check:")
	d.checkBinary(s.Rustup, true)
	if d.checkBinary(s.Cargo, true) {
		d.checkCargoVersion(ctx, s)
	}
	d.checkBinary(s.StripTool, d.strip)
}

// checkBinary reports whether name is on PATH. A missing binary counts as a
// problem only when required.
func (d *doctor) checkBinary(name string, required bool) bool {
	path, err := toolchain.LookPath(name)
	if err != nil {
		if required {
			fmt.Fprintf(d.out, "  [MISS] %s not found\n", name)
			d.problems++
		} else {
			fmt.Fprintf(d.out, "  [INFO] %s not found (not needed on this host)\n", name)
		}
		return false
	}
	fmt.Fprintf(d.out, "  [ OK ] %s found at %s\n", name, path)
	return true
}

func (d *doctor) checkCargoVersion(ctx context.Context, s *config.Settings) {
	v, err := toolchain.Version(ctx, d.runner, s.Cargo)
	if err != nil {
		fmt.Fprintf(d.out, "  [WARN] cannot determine %s version: %v\n", s.Cargo, err)
		return
	}
	if s.MinCargoVersion == "" {
		fmt.Fprintf(d.out, "  [ OK ] %s version %s\n", s.Cargo, v)
		return
	}
	if err := toolchain.CheckMinimum(v, s.MinCargoVersion); err != nil {
		fmt.Fprintf(d.out, "  [FAIL] %s %v\n", s.Cargo, err)
		d.problems++
		return
	}
	fmt.Fprintf(d.out, "  [ OK ] %s version %s (>= %s)\n", s.Cargo, v, s.MinCargoVersion)
}
