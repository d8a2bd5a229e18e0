package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/absurd-lang/relbuild/internal/config"
	"github.com/absurd-lang/relbuild/internal/pipeline"
	"github.com/absurd-lang/relbuild/internal/platform"
	"github.com/absurd-lang/relbuild/internal/target"
	"github.com/absurd-lang/relbuild/internal/toolchain"
	"github.com/spf13/cobra"
)

var (
	buildPlatform string
	buildNoStrip  bool
	buildBinary   string
	buildTimeout  time.Duration
	buildOutput   string
	buildDir      string
)

// newRunner builds the subprocess runner. Tests replace it.
var newRunner = func(stdout, stderr io.Writer) toolchain.Runner {
	return &toolchain.ExecRunner{Stdout: stdout, Stderr: stderr}
}

func init() {
	buildCmd.Flags().StringVar(&buildPlatform, "platform", "", "Build as if on this os/arch (default: the host)")
	buildCmd.Flags().BoolVar(&buildNoStrip, "no-strip", false, "Skip stripping debug symbols")
	buildCmd.Flags().StringVar(&buildBinary, "binary", "", "Binary base name (default: from Cargo.toml, else absurd)")
	buildCmd.Flags().DurationVar(&buildTimeout, "timeout", 0, "Limit each toolchain command to this duration (0 = no limit)")
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", `Progress format: "text" or "kv"`)
	buildCmd.Flags().StringVarP(&buildDir, "dir", "C", "", "Source tree root (default: current directory)")
	rootCmd.AddCommand(buildCmd)
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a stripped release binary for the host platform",
	Long: `Install the Rust target for the host, run cargo build --release, strip the
artifact on platforms that support it, and print the artifact size.

The command exits with the failing toolchain command's status, 127 when a
toolchain executable is missing, and 1 for other failures.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := sourceDir(buildDir)
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
		applyBuildFlags(cmd, settings)

		format, err := pipeline.ParseFormat(settings.Output)
		if err != nil {
			return err
		}

		host := platform.Detect()
		if buildPlatform != "" {
			host, err = platform.Parse(buildPlatform)
			if err != nil {
				return err
			}
		}

		binary := settings.Binary
		if binary == "" {
			binary, err = target.BinaryNameFromManifest(dir)
			if err != nil {
				return err
			}
		}

		log := newLogger(cmd.ErrOrStderr(), verbose)
		log.WithField("sources", cfg.Sources()).Debug("loaded config")

		// Keep stdout clean for kv records.
		childOut := cmd.OutOrStdout()
		if format == pipeline.FormatKV {
			childOut = cmd.ErrOrStderr()
		}

		tc := toolchain.New(newRunner(childOut, cmd.ErrOrStderr()))
		tc.Cargo = settings.Cargo
		tc.Rustup = settings.Rustup
		tc.Strip = settings.StripTool
		tc.Dir = dir
		tc.Timeout = settings.Timeout
		tc.Env = settings.Env
		tc.Log = log

		p := &pipeline.Pipeline{
			Platform: host,
			Options: target.Options{
				BinaryName: binary,
				NoStrip:    !settings.Strip,
			},
			Steps:  tc,
			Dir:    dir,
			Out:    cmd.OutOrStdout(),
			Format: format,
			Log:    log,
		}
		_, err = p.Run(cmd.Context())
		return err
	},
}

// applyBuildFlags overrides config settings with explicitly set flags.
func applyBuildFlags(cmd *cobra.Command, s *config.Settings) {
	flags := cmd.Flags()
	if flags.Changed("no-strip") {
		s.Strip = !buildNoStrip
	}
	if flags.Changed("binary") {
		s.Binary = buildBinary
	}
	if flags.Changed("timeout") {
		s.Timeout = buildTimeout
	}
	if flags.Changed("output") {
		s.Output = buildOutput
	}
}

func sourceDir(flagDir string) (string, error) {
	if flagDir != "" {
		info, err := os.Stat(flagDir)
		if err != nil {
			return "", fmt.Errorf("source directory: %w", err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("source directory %s is not a directory", flagDir)
		}
		return flagDir, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("determining working directory: %w", err)
	}
	return dir, nil
}
