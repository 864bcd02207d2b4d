package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last sync outcome per configuration",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	configs, err := a.db.ListSyncConfigs()
	if err != nil {
		return fmt.Errorf("list configurations: %w", err)
	}
	if len(configs) == 0 {
		fmt.Println("No sync configurations.")
		return nil
	}

	for _, cfg := range configs {
		fmt.Printf("%s (%s)\n", cfg.DisplayName, cfg.ID)

		status, err := a.db.GetSyncStatus(cfg.ID)
		if err != nil {
			return fmt.Errorf("load status for %s: %w", cfg.ID, err)
		}
		if status == nil {
			fmt.Println("  Never synced.")
			fmt.Println()
			continue
		}

		fmt.Printf("  State:   %s\n", status.State)
		fmt.Printf("  Attempt: %s\n", formatTimeSince(status.LastAttemptAt))
		if status.Message != "" {
			fmt.Printf("  Result:  %s\n", status.Message)
		}
		if status.ErrorMessage != "" {
			fmt.Printf("  Errors:  %s\n", status.ErrorMessage)
		}
		fmt.Println()
	}
	return nil
}
