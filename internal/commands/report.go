package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/journal"
	"github.com/cleared-dev/tally/internal/money"
)

func newBalanceCommand(repo *string) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Print the trial balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *repo)
			if err != nil {
				return err
			}
			defer a.Close()

			balances, err := a.engine.TrialBalance(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "ACCOUNT\tNAME\tCURRENCY\tDEBIT\tCREDIT\tNET\t")
			for _, b := range balances {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n", b.Account, b.Name, b.Currency,
					money.Format(b.Debit, b.Currency), money.Format(b.Credit, b.Currency),
					money.Format(b.Net(), b.Currency))
			}
			return w.Flush()
		},
	}
}

func newExportCommand(repo *string) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every posted entry to a journal CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *repo)
			if err != nil {
				return err
			}
			defer a.Close()

			batches, err := a.db.ListBatches(cmd.Context())
			if err != nil {
				return err
			}
			path := output
			if !filepath.IsAbs(path) {
				path = filepath.Join(a.root, path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("creating export directory: %w", err)
			}
			if err := journal.Export(path, batches); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d batches to %s\n", len(batches), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", filepath.Join("exports", "journal.csv"), "output CSV path")

	return cmd
}

func newAccountsCommand(repo *string) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List ledger accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *repo)
			if err != nil {
				return err
			}
			defer a.Close()

			accts, err := a.db.ListAccounts(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tNAME\tTYPE")
			for _, acct := range accts {
				fmt.Fprintf(w, "%s\t%s\t%s\n", acct.Code, acct.Name, acct.Type)
			}
			return w.Flush()
		},
	}
}

func newBatchCommand(repo *string) *cobra.Command {
	return &cobra.Command{
		Use:   "batch <code>",
		Short: "Show a batch and its entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *repo)
			if err != nil {
				return err
			}
			defer a.Close()

			b, err := a.db.GetBatchByCode(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s/%s %s %s\n", b.Code, b.SourceType, b.SourceID, b.Currency, b.CreatedAt.Format(time.RFC3339))
			if b.Memo != "" {
				fmt.Fprintf(out, "  %s\n", b.Memo)
			}
			switch {
			case b.IsReversal():
				fmt.Fprintf(out, "  reverses %s\n", b.ReversesBatchID)
			case b.Superseded():
				fmt.Fprintf(out, "  superseded by %s\n", b.SupersededBy)
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "LINE\tACCOUNT\tDEBIT\tCREDIT\tREF")
			for _, e := range b.Entries {
				var debit, credit string
				if !e.Debit.IsZero() {
					debit = money.Format(e.Debit, e.Currency)
				}
				if !e.Credit.IsZero() {
					credit = money.Format(e.Credit, e.Currency)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", e.Line, e.Account, debit, credit, e.Ref)
			}
			return w.Flush()
		},
	}
}
