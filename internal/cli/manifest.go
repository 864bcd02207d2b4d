package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetManifestCmd = &cobra.Command{
	Use:   "reset-manifest <config-id>",
	Short: "Forget a configuration's synced state",
	Long: `Forget a configuration's synced state.

Drops the local manifest so the next sync re-diffs every entity from
scratch. Use this after restoring the remote store from a backup, or
when local and remote state have drifted in a way incremental sync
cannot untangle. No data is deleted on either side.`,
	Args: cobra.ExactArgs(1),
	RunE: runResetManifest,
}

func runResetManifest(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, err := a.db.GetSyncConfig(args[0])
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg == nil {
		return fmt.Errorf("no configuration with ID %s", args[0])
	}

	if err := a.syncEngine().ClearLocalManifest(cfg.ID); err != nil {
		return fmt.Errorf("reset manifest: %w", err)
	}

	fmt.Printf("Manifest for %q cleared. The next sync re-diffs everything.\n", cfg.DisplayName)
	return nil
}
