// Package cli provides the command-line interface for Inkwell.
package cli

import (
	"context"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/inkwell-app/inkwell/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "inkwell",
	Short: "Personal journaling with WebDAV sync",
	Long: `Personal journaling with WebDAV sync

A local-first journal store that synchronizes journals, entries, and
attachments against any WebDAV server (Nextcloud, ownCloud, plain
Apache DAV). Credentials are encrypted at rest; sync is incremental
and conflict-aware (last write wins).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(resetManifestCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(testConnectionCmd)
	rootCmd.AddCommand(validateCmd)
}

// Execute runs the CLI with fang enhancements.
func Execute(ctx context.Context) error {
	return fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(version.Short()),
		fang.WithCommit(version.Commit),
	)
}
