package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/instrument"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/money"
)

func newCheckCommand(repo *string) *cobra.Command {
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Track checks through their lifecycle",
	}
	checkCmd.AddCommand(
		newCheckAddCommand(repo),
		newCheckTransitionCommand(repo),
		newCheckArchiveCommand(repo),
		newCheckDeleteCommand(repo),
		newCheckListCommand(repo),
		newCheckShowCommand(repo),
		newCheckFindCommand(repo),
	)
	return checkCmd
}

func newCheckAddCommand(repo *string) *cobra.Command {
	var number, bank, issue, due, amount, currency, direction, counterparty, actor string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a received or issued check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			nc := instrument.NewCheck{
				CheckNumber: number,
				Bank:        bank,
				Currency:    currency,
				Direction:   model.Direction(strings.ToUpper(direction)),
				Actor:       actor,
			}
			var err error
			if nc.IssueDate, err = parseDay(issue); err != nil {
				return fmt.Errorf("--issue: %w", err)
			}
			if due != "" {
				if nc.DueDate, err = parseDay(due); err != nil {
					return fmt.Errorf("--due: %w", err)
				}
			}
			if nc.Amount, err = decimal.NewFromString(amount); err != nil {
				return fmt.Errorf("--amount: %w", err)
			}
			if counterparty != "" {
				kind, ref, ok := strings.Cut(counterparty, ":")
				if !ok {
					return fmt.Errorf("--counterparty must look like customer:<id>, got %q", counterparty)
				}
				nc.CounterpartyType = model.CounterpartyType(kind)
				nc.CounterpartyID = ref
			}

			a, err := openApp(cmd.Context(), *repo)
			if err != nil {
				return err
			}
			defer a.Close()

			in, err := a.checks.Create(cmd.Context(), nc)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), in.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&number, "number", "", "check number (required)")
	cmd.Flags().StringVar(&bank, "bank", "", "issuing bank")
	cmd.Flags().StringVar(&issue, "issue", "", "issue date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&due, "due", "", "due date YYYY-MM-DD (defaults to issue date)")
	cmd.Flags().StringVar(&amount, "amount", "", "amount (required)")
	cmd.Flags().StringVar(&currency, "currency", "", "currency (required)")
	cmd.Flags().StringVar(&direction, "direction", "IN", "IN for received, OUT for issued")
	cmd.Flags().StringVar(&counterparty, "counterparty", "", "counterparty as type:id, e.g. customer:42")
	cmd.Flags().StringVar(&actor, "actor", "cli", "who is making the change")
	for _, f := range []string{"number", "issue", "amount", "currency"} {
		_ = cmd.MarkFlagRequired(f)
	}

	return cmd
}

func newCheckTransitionCommand(repo *string) *cobra.Command {
	var notes, actor string

	cmd := &cobra.Command{
		Use:   "transition <id> <status>",
		Short: "Move a check to a new status and post its ledger effect",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *repo)
			if err != nil {
				return err
			}
			defer a.Close()

			status := model.InstrumentStatus(strings.ToUpper(args[1]))
			in, err := a.checks.Transition(cmd.Context(), args[0], status, notes, actor)
			if err != nil {
				return err
			}
			last := in.History[len(in.History)-1]
			if last.BatchID != "" {
				b, err := a.db.GetBatch(cmd.Context(), last.BatchID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s (posted %s)\n", in.CheckNumber, in.Status, b.Code)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", in.CheckNumber, in.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "reason for the change")
	cmd.Flags().StringVar(&actor, "actor", "cli", "who is making the change")

	return cmd
}

func newCheckArchiveCommand(repo *string) *cobra.Command {
	var notes, actor string

	cmd := &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive a cashed or cancelled check",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *repo)
			if err != nil {
				return err
			}
			defer a.Close()

			in, err := a.checks.Archive(cmd.Context(), args[0], notes, actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", in.CheckNumber, in.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "reason for archiving")
	cmd.Flags().StringVar(&actor, "actor", "cli", "who is making the change")

	return cmd
}

func newCheckDeleteCommand(repo *string) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Reverse a check's postings and delete it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *repo)
			if err != nil {
				return err
			}
			defer a.Close()

			reversals, err := a.checks.Delete(cmd.Context(), args[0], actor)
			if err != nil {
				return err
			}
			for _, r := range reversals {
				fmt.Fprintf(cmd.OutOrStdout(), "Reversed with %s\n", r.Code)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "cli", "who is making the change")

	return cmd
}

func newCheckListCommand(repo *string) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List checks, optionally by effective status (including OVERDUE)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *repo)
			if err != nil {
				return err
			}
			defer a.Close()

			checks, err := a.checks.List(cmd.Context(), model.InstrumentStatus(strings.ToUpper(status)))
			if err != nil {
				return err
			}

			now := time.Now()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNUMBER\tBANK\tDIR\tAMOUNT\tDUE\tSTATUS")
			for _, in := range checks {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s %s\t%s\t%s\n",
					in.ID, in.CheckNumber, in.Bank, in.Direction,
					money.Format(in.Amount, in.Currency), in.Currency,
					in.DueDate.Format(time.DateOnly), in.EffectiveStatus(now))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status")

	return cmd
}

func newCheckShowCommand(repo *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a check and its audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *repo)
			if err != nil {
				return err
			}
			defer a.Close()

			in, err := a.checks.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s %s %s %s %s\n", in.CheckNumber, in.Bank, in.Direction,
				money.Format(in.Amount, in.Currency), in.Currency, in.EffectiveStatus(time.Now()))
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "AT\tFROM\tTO\tACTOR\tNOTES")
			for _, h := range in.History {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", h.At.Format(time.RFC3339), h.From, h.To, h.Actor, h.Notes)
			}
			return w.Flush()
		},
	}
}

func newCheckFindCommand(repo *string) *cobra.Command {
	var bank, number string

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find checks by bank and check number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *repo)
			if err != nil {
				return err
			}
			defer a.Close()

			checks, err := a.checks.Find(cmd.Context(), bank, number)
			if err != nil {
				return err
			}
			for _, in := range checks {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", in.ID, in.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&bank, "bank", "", "issuing bank")
	cmd.Flags().StringVar(&number, "number", "", "check number (required)")
	_ = cmd.MarkFlagRequired("number")

	return cmd
}

// parseDay parses a YYYY-MM-DD date in UTC.
func parseDay(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}

// parseInstant parses a date or an RFC 3339 timestamp; empty means now.
func parseInstant(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return parseDay(s)
}
