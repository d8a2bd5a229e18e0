package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/absurd-lang/relbuild/internal/branding"
	"github.com/absurd-lang/relbuild/internal/pipeline"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` builds release binaries of ` + branding.ProductBinary() + ` for the host platform.
It installs the Rust target, runs cargo, strips the artifact where supported,
and reports its size. Run it from the root of the source tree.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every toolchain invocation to stderr")
}

// Execute runs the root command with build info injected via ldflags and
// returns the process exit status. SIGINT and SIGTERM cancel the running
// command and kill any child process it started.
func Execute(version, commit, date string) int {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return pipeline.ExitCode(err)
	}
	return pipeline.ExitOK
}

// newLogger returns the diagnostics logger for a command run.
func newLogger(w io.Writer, verbose bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	l.SetLevel(logrus.WarnLevel)
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}
