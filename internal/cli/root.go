package cli

import (
	"github.com/spf13/cobra"
)

var (
	// cfgFile holds the path to the config file, bound to the persistent flag.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dropzone",
	Short: "Agentic drop zone file monitor",
	Long: `Dropzone watches configured directories ("drop zones") and runs an
external agent workflow for every qualifying file system change.

Zones, agents, and pipeline settings are defined in a YAML configuration
file (drops.yaml by default). Run 'dropzone run' to start watching in the
foreground.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// No subcommand: run in the foreground, same as `dropzone run`.
		return runForeground(getConfigPath())
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "drops.yaml", "Path to the configuration file")
}

func getConfigPath() string {
	return cfgFile
}
