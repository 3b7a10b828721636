package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/accounts"
	"github.com/cleared-dev/tally/internal/config"
	"github.com/cleared-dev/tally/internal/importer"
	"github.com/cleared-dev/tally/internal/money"
	"github.com/cleared-dev/tally/internal/store"
)

func newInitCommand() *cobra.Command {
	var name string
	var entityType string
	var currency string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new tally project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.Context(), cmd.OutOrStdout(), absDir, name, entityType, currency)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "business name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&entityType, "entity-type", "trading_company", "entity type")
	cmd.Flags().StringVar(&currency, "currency", "USD", "home currency")

	return cmd
}

func runInit(ctx context.Context, out io.Writer, dir, name, entityType, currency string) error {
	for _, d := range []string{"accounts", importer.Dir} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	// Write tally.yaml.
	cfg := config.Default(name, entityType)
	cfg.HomeCurrency = money.Normalize(currency)
	if err := config.Save(filepath.Join(dir, config.FileName), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Write chart of accounts.
	registry := accounts.NewRegistry(accounts.DefaultChart(entityType))
	if err := registry.Save(dir); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}

	// Write .gitignore.
	gitignore := "ledger.db*\n.env\nexports/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	// Create the ledger and its accounts.
	if err := cfg.ApplyEnv(filepath.Join(dir, ".env")); err != nil {
		return err
	}
	db, err := store.Open(ctx, cfg.Database.Driver, cfg.DatabaseDSN(dir))
	if err != nil {
		return err
	}
	defer db.Close()
	if err := accounts.EnsureAccounts(ctx, db, registry); err != nil {
		return err
	}

	fmt.Fprintf(out, "Initialized tally project at %s (%s, %d accounts)\n", dir, cfg.HomeCurrency, len(registry.Chart()))
	return nil
}
