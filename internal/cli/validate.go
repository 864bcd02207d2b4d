package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that every attachment file is readable",
	Long: `Check that every attachment record points at a readable file.

Validation only observes; it never moves or rewrites anything. Run it
after a migration, or when attachments appear broken, to find records
whose files are missing or unreadable.`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.migrationEngine().Validate()
	if err != nil {
		return fmt.Errorf("validate attachments: %w", err)
	}

	fmt.Printf("Attachments:  %d\n", report.Total)
	fmt.Printf("Accessible:   %d\n", report.Accessible)
	fmt.Printf("Inaccessible: %d\n", report.Inaccessible)
	fmt.Printf("Success rate: %.0f%%\n", report.SuccessRate()*100)

	if report.Inaccessible > 0 {
		fmt.Println("\nInaccessible files:")
		for _, f := range report.InaccessibleFiles {
			fmt.Printf("  %s\n", f)
		}
		return fmt.Errorf("%d attachments are inaccessible", report.Inaccessible)
	}
	return nil
}
