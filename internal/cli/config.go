package cli

import (
	"fmt"
	"strings"

	"github.com/absurd-lang/relbuild/internal/config"
	"github.com/spf13/cobra"
)

var configGetDir string

func init() {
	configGetCmd.Flags().StringVarP(&configGetDir, "dir", "C", "", "source tree whose "+config.ProjectFile+" is layered in (default: current directory)")

	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage user settings",
	Long: `Read and write relbuild settings stored at ~/.relbuild/config.yaml.

Known keys: ` + strings.Join(config.Keys(), ", ") + `.
Each "config set env KEY=VALUE" adds or replaces one environment entry
passed to rustup, cargo and strip.
A relbuild.yaml in the source tree root and RELBUILD_* environment
variables override the user file.`,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.Set(key, value); err != nil {
			return fmt.Errorf("setting config key %q: %w", key, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !config.IsKnownKey(args[0]) {
			return fmt.Errorf("unknown config key %q", args[0])
		}
		dir, err := sourceDir(configGetDir)
		if err != nil {
			return err
		}
		cfg, err := config.Load(dir)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), cfg.Get(args[0]))
		return nil
	},
}
