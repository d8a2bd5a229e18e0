package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/absurd-lang/relbuild/internal/platform"
	"github.com/absurd-lang/relbuild/internal/target"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(targetsCmd)
}

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List supported build platforms",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := target.DefaultTable()
		if err != nil {
			return err
		}
		host := platform.Detect()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "PLATFORM\tTRIPLE\tINSTALL\tARTIFACT\tSTRIP\t")
		for _, p := range table.Platforms() {
			cfg, err := table.Resolve(p, target.Options{})
			if err != nil {
				return err
			}
			name := p.String()
			if p == host {
				name += " *"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
				name, dash(cfg.Triple), dash(cfg.InstallTriple), cfg.ArtifactPath(), yesNo(cfg.Strip))
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if _, ok := table.Lookup(host); !ok {
			fmt.Fprintf(cmd.OutOrStdout(), "\nHost %s is not supported.\n", host)
		}
		return nil
	},
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
