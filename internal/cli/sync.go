package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkwell-app/inkwell/internal/models"
	"github.com/inkwell-app/inkwell/internal/sync"
)

var (
	syncAll bool
	syncDue bool
)

var syncCmd = &cobra.Command{
	Use:   "sync [config-id]",
	Short: "Synchronize against a WebDAV server",
	Long: `Run one reconciliation for a sync configuration.

Computes the difference between the local store, the remote store, and
the last synced state, then uploads and downloads only what changed.
Conflicting edits resolve by last write wins.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncAll, "all", false, "sync every enabled configuration")
	syncCmd.Flags().BoolVar(&syncDue, "due", false, "with --all, only configurations whose frequency makes them due")
}

func runSync(cmd *cobra.Command, args []string) error {
	if !syncAll && len(args) == 0 {
		return errors.New("provide a config ID or --all")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var configs []models.SyncConfig
	if syncAll {
		configs, err = a.db.ListEnabledSyncConfigs()
		if err != nil {
			return fmt.Errorf("list configurations: %w", err)
		}
		if syncDue {
			now := time.Now()
			due := configs[:0]
			for _, cfg := range configs {
				if cfg.Due(now) {
					due = append(due, cfg)
				}
			}
			configs = due
		}
		if len(configs) == 0 {
			fmt.Println("No enabled sync configurations.")
			return nil
		}
	} else {
		cfg, err := a.db.GetSyncConfig(args[0])
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		if cfg == nil {
			return fmt.Errorf("no configuration with ID %s", args[0])
		}
		configs = []models.SyncConfig{*cfg}
	}

	engine := a.syncEngine()
	failed := 0
	for i := range configs {
		cfg := &configs[i]
		fmt.Printf("Syncing %q...\n", cfg.DisplayName)

		status, err := runOneSync(cmd, engine, cfg.ID)
		if err != nil {
			return err
		}

		switch status.State {
		case models.StateCompleted:
			fmt.Printf("  %s\n", status.Message)
			if status.ErrorMessage != "" {
				fmt.Printf("  With errors: %s\n", status.ErrorMessage)
			}
		case models.StateCancelled:
			fmt.Println("  Cancelled.")
		default:
			failed++
			fmt.Printf("  Failed: %s\n", status.Message)
			if status.ErrorMessage != "" {
				fmt.Printf("  %s\n", status.ErrorMessage)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d configurations failed", failed, len(configs))
	}
	return nil
}

func runOneSync(cmd *cobra.Command, engine *sync.Engine, configID string) (*models.SyncStatus, error) {
	bar := NewProgressBar(1, 20)
	rendered := false

	status, err := engine.PerformSync(cmd.Context(), configID, func(s models.SyncStatus) {
		if !s.State.Active() {
			return
		}
		ClearLine()
		bar.UpdateRatio(s.Progress, s.Message)
		fmt.Print(bar.Render())
		rendered = true
	})
	if rendered {
		ClearLine()
	}
	if err != nil {
		return nil, err
	}
	return status, nil
}
