package cli

import (
	"fmt"

	"github.com/rartzi/agentic-drop-zones/internal/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file without starting the pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(getConfigPath())
		if err != nil {
			return err
		}
		fmt.Printf("Configuration OK: %d drop zone(s), %d worker(s), queue capacity %d\n",
			len(cfg.DropZones), cfg.Application.WorkerCount, cfg.Application.QueueCapacity)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
