package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fireflybt/fireflybt/internal/buildinfo"
	"github.com/fireflybt/fireflybt/internal/config"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "fireflybt",
		Short:   "Import Banca Transilvania statements into Firefly III",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newServeCommand())

	return rootCmd
}

// loadConfig reads the config file when given, otherwise builds the
// configuration from defaults and the environment.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.FromEnv(), nil
}
