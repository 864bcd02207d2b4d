package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var migrateDryRun bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate legacy attachment files to the modern layout",
	Long: `Migrate legacy attachment files to the modern layout.

Legacy attachments carry absolute, platform-specific paths from older
app versions. Migration copies each file into the content-organized
attachment tree ({type}/{yyyy}/{mm}/{dd}/{entry}/{name}) and rewrites
the record only after the copy is verified. Source files are never
deleted. Run with --dry-run to preview without touching anything.`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "report what would be migrated without copying")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	engine := a.migrationEngine()

	needed, err := engine.IsMigrationNeeded()
	if err != nil {
		return fmt.Errorf("check migration state: %w", err)
	}
	if !needed {
		fmt.Println("All attachments already use the modern layout.")
		return nil
	}

	count, err := engine.MigrationCount()
	if err != nil {
		return fmt.Errorf("count legacy attachments: %w", err)
	}
	if migrateDryRun {
		fmt.Printf("Dry run: %d legacy attachments\n\n", count)
	} else {
		fmt.Printf("Migrating %d legacy attachments\n\n", count)
	}

	bar := NewProgressBar(count, 20)
	rendered := false
	result, err := engine.MigrateAllFiles(cmd.Context(), func(current, total int, status string) {
		ClearLine()
		bar.total = total
		bar.Update(current, status)
		fmt.Print(bar.RenderMigrate())
		rendered = true
	}, migrateDryRun)
	if rendered {
		ClearLine()
	}
	if err != nil {
		return err
	}

	fmt.Printf("Migrated:         %d\n", result.MigratedSuccessfully)
	fmt.Printf("Already migrated: %d\n", result.AlreadyMigrated)
	fmt.Printf("Failed:           %d\n", result.Failed)
	fmt.Printf("Duration:         %s\n", result.Duration.Round(time.Millisecond))
	fmt.Printf("Success rate:     %.0f%%\n", result.SuccessRate()*100)

	if result.HasErrors() {
		fmt.Println("\nErrors:")
		for _, e := range result.Errors {
			fmt.Printf("  %s: %s\n", e.AttachmentID, e.Reason)
		}
		return fmt.Errorf("%d attachments failed to migrate", result.Failed)
	}
	return nil
}
