package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/inkwell-app/inkwell/internal/models"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage sync configurations",
	Long: `Manage sync configurations.

Each configuration names a WebDAV endpoint, a credential, and the set
of journals it synchronizes. Credentials are stored encrypted, outside
the database.`,
}

var (
	configAddName        string
	configAddURL         string
	configAddUsername    string
	configAddPassword    string
	configAddJournals    []string
	configAddFrequency   string
	configAddWifiOnly    bool
	configAddSkipAttach  bool
	configAddEncryptData bool
)

var configAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a sync configuration",
	RunE:  runConfigAdd,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sync configurations",
	RunE:  runConfigList,
}

var configRemoveCmd = &cobra.Command{
	Use:   "remove <config-id>",
	Short: "Remove a sync configuration and its credential",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigRemove,
}

var configEnableCmd = &cobra.Command{
	Use:   "enable <config-id>",
	Short: "Enable a sync configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setConfigEnabled(args[0], true) },
}

var configDisableCmd = &cobra.Command{
	Use:   "disable <config-id>",
	Short: "Disable a sync configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setConfigEnabled(args[0], false) },
}

func init() {
	configAddCmd.Flags().StringVar(&configAddName, "name", "", "display name for the configuration")
	configAddCmd.Flags().StringVar(&configAddURL, "url", "", "WebDAV server URL")
	configAddCmd.Flags().StringVar(&configAddUsername, "username", "", "WebDAV username")
	configAddCmd.Flags().StringVar(&configAddPassword, "password", "", "WebDAV password or app token")
	configAddCmd.Flags().StringSliceVar(&configAddJournals, "journals", nil, "journal IDs to sync (default: all)")
	configAddCmd.Flags().StringVar(&configAddFrequency, "frequency", string(models.FrequencyManual), "sync frequency (manual, on_app_start, hourly, daily, weekly)")
	configAddCmd.Flags().BoolVar(&configAddWifiOnly, "wifi-only", false, "only sync on wifi")
	configAddCmd.Flags().BoolVar(&configAddSkipAttach, "skip-attachments", false, "sync metadata and entries only")
	configAddCmd.Flags().BoolVar(&configAddEncryptData, "encrypt", false, "encrypt entry data on the remote")
	_ = configAddCmd.MarkFlagRequired("name")
	_ = configAddCmd.MarkFlagRequired("url")
	_ = configAddCmd.MarkFlagRequired("username")
	_ = configAddCmd.MarkFlagRequired("password")

	configCmd.AddCommand(configAddCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configRemoveCmd)
	configCmd.AddCommand(configEnableCmd)
	configCmd.AddCommand(configDisableCmd)
}

func runConfigAdd(cmd *cobra.Command, args []string) error {
	frequency := models.SyncFrequency(configAddFrequency)
	valid := false
	for _, f := range models.ValidFrequencies() {
		if f == frequency {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid frequency %q", configAddFrequency)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := &models.SyncConfig{
		ID:               uuid.NewString(),
		DisplayName:      configAddName,
		ServerURL:        strings.TrimRight(configAddURL, "/"),
		Username:         configAddUsername,
		Enabled:          true,
		SyncFrequency:    frequency,
		SyncOnWifiOnly:   configAddWifiOnly,
		SyncAttachments:  !configAddSkipAttach,
		EncryptData:      configAddEncryptData,
		SyncedJournalIDs: strings.Join(configAddJournals, ","),
	}

	if err := a.creds.Save(cfg.ID, configAddPassword); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	if err := a.db.CreateSyncConfig(cfg); err != nil {
		// Don't leave an orphaned credential behind.
		_ = a.creds.Delete(cfg.ID)
		return fmt.Errorf("create configuration: %w", err)
	}

	fmt.Printf("Added configuration %q (%s)\n", cfg.DisplayName, cfg.ID)
	fmt.Printf("\nVerify it with 'inkwell test-connection %s'.\n", cfg.ID)
	return nil
}

func runConfigList(cmd *cobra.Command, args []string) error {
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
		fmt.Println("\nUse 'inkwell config add' to create one.")
		return nil
	}

	fmt.Printf("SYNC CONFIGURATIONS (%d)\n", len(configs))
	fmt.Println("──────────────────────────────────────────────────")
	for _, cfg := range configs {
		state := "enabled"
		if !cfg.Enabled {
			state = "disabled"
		}
		scope := "all journals"
		if ids := cfg.JournalIDs(); len(ids) > 0 {
			scope = fmt.Sprintf("%d journals", len(ids))
		}
		lastSync := "never"
		if cfg.LastSyncAt != nil && !cfg.LastSyncAt.IsZero() {
			lastSync = formatTimeSince(*cfg.LastSyncAt)
		}

		fmt.Printf("  %s  %s\n", cfg.ID, cfg.DisplayName)
		fmt.Printf("    %s @ %s (%s, %s)\n", cfg.Username, cfg.ServerURL, state, cfg.SyncFrequency)
		fmt.Printf("    Scope: %s, last synced: %s\n", scope, lastSync)
		fmt.Println()
	}
	return nil
}

func runConfigRemove(cmd *cobra.Command, args []string) error {
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

	if err := a.syncEngine().DeleteConfig(cfg.ID); err != nil {
		return err
	}
	fmt.Printf("Removed configuration %q\n", cfg.DisplayName)
	return nil
}

func setConfigEnabled(id string, enabled bool) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, err := a.db.GetSyncConfig(id)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg == nil {
		return fmt.Errorf("no configuration with ID %s", id)
	}

	cfg.Enabled = enabled
	if err := a.db.UpdateSyncConfig(cfg); err != nil {
		return fmt.Errorf("update configuration: %w", err)
	}

	if enabled {
		fmt.Printf("Enabled %q\n", cfg.DisplayName)
	} else {
		fmt.Printf("Disabled %q\n", cfg.DisplayName)
	}
	return nil
}

// formatTimeSince formats a duration since a time in a human-readable way.
func formatTimeSince(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02")
	}
}
