package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/fx"
	"github.com/cleared-dev/tally/internal/money"
)

func newFXCommand(repo *string) *cobra.Command {
	fxCmd := &cobra.Command{
		Use:   "fx",
		Short: "Maintain and query exchange rates",
	}
	fxCmd.AddCommand(newFXSetCommand(repo), newFXRateCommand(repo), newFXListCommand(repo))
	return fxCmd
}

func newFXSetCommand(repo *string) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "set <from> <to> <rate>",
		Short: "Record the rate one unit of <from> buys in <to>",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rate, err := decimal.NewFromString(args[2])
			if err != nil {
				return fmt.Errorf("parsing rate: %w", err)
			}
			effective, err := parseInstant(at)
			if err != nil {
				return fmt.Errorf("--at: %w", err)
			}

			a, err := openApp(cmd.Context(), *repo)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := fx.Set(cmd.Context(), a.db, args[0], args[1], effective, rate); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s/%s = %s from %s\n",
				money.Normalize(args[0]), money.Normalize(args[1]), rate, effective.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "effective date or RFC 3339 time (default now)")

	return cmd
}

func newFXRateCommand(repo *string) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "rate <from> <to>",
		Short: "Show the rate in effect at a time",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := parseInstant(at)
			if err != nil {
				return fmt.Errorf("--at: %w", err)
			}

			a, err := openApp(cmd.Context(), *repo)
			if err != nil {
				return err
			}
			defer a.Close()

			rate, _, err := a.rates.Rate(cmd.Context(), args[0], args[1], when, true)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rate.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "date or RFC 3339 time (default now)")

	return cmd
}

func newFXListCommand(repo *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored exchange rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *repo)
			if err != nil {
				return err
			}
			defer a.Close()

			rates, err := a.db.ListRates(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PAIR\tEFFECTIVE\tRATE")
			for _, r := range rates {
				fmt.Fprintf(w, "%s/%s\t%s\t%s\n", r.From, r.To, r.EffectiveAt.Format(time.RFC3339), r.Rate)
			}
			return w.Flush()
		},
	}
}
