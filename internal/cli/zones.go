package cli

import (
	"fmt"
	"strings"

	"github.com/rartzi/agentic-drop-zones/internal/config"
	"github.com/spf13/cobra"
)

var zonesCmd = &cobra.Command{
	Use:   "zones",
	Short: "List the configured drop zones",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(getConfigPath())
		if err != nil {
			return err
		}

		for _, zone := range cfg.DropZones {
			events := make([]string, 0, len(zone.Events))
			for _, e := range zone.Events {
				events = append(events, string(e))
			}
			fmt.Printf("%s\n", zone.Name)
			fmt.Printf("  dirs:     %s\n", strings.Join(zone.ZoneDirs, ", "))
			fmt.Printf("  patterns: %s\n", strings.Join(zone.FilePatterns, ", "))
			fmt.Printf("  events:   %s\n", strings.Join(events, ", "))
			fmt.Printf("  agent:    %s", zone.Agent)
			if zone.Model != "" {
				fmt.Printf(" (%s)", zone.Model)
			}
			fmt.Println()
			if zone.MaxConcurrent > 0 {
				fmt.Printf("  max_concurrent: %d\n", zone.MaxConcurrent)
			}
			fmt.Printf("  timeout:  %s\n", zone.Timeout.Duration)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(zonesCmd)
}
