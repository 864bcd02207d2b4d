package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var testConnectionCmd = &cobra.Command{
	Use:   "test-connection <config-id>",
	Short: "Verify that a configuration's server accepts its credential",
	Args:  cobra.ExactArgs(1),
	RunE:  runTestConnection,
}

func runTestConnection(cmd *cobra.Command, args []string) error {
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

	secret, err := a.creds.Get(cfg.ID)
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}

	if err := a.syncEngine().TestConnection(cmd.Context(), cfg, secret); err != nil {
		return fmt.Errorf("connection to %s failed: %w", cfg.ServerURL, err)
	}

	fmt.Printf("Connection to %s OK.\n", cfg.ServerURL)
	return nil
}
