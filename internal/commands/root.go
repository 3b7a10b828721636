package commands

import (
	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var repo string

	rootCmd := &cobra.Command{
		Use:     "tally",
		Short:   "Double-entry ledger and settlement engine",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&repo, "repo", ".", "project directory")

	rootCmd.AddCommand(
		newInitCommand(),
		newPostCommand(&repo),
		newReverseCommand(&repo),
		newCheckCommand(&repo),
		newFXCommand(&repo),
		newAllocateCommand(),
		newShipmentCommand(&repo),
		newImportCommand(&repo),
		newBalanceCommand(&repo),
		newAccountsCommand(&repo),
		newBatchCommand(&repo),
		newExportCommand(&repo),
	)

	return rootCmd
}
