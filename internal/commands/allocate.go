package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/allocate"
	"github.com/cleared-dev/tally/internal/money"
)

func newAllocateCommand() *cobra.Command {
	var extras, currency string

	cmd := &cobra.Command{
		Use:   "allocate <qty>x<unit-cost>...",
		Short: "Show how shared costs spread over shipment lines",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			total, err := decimal.NewFromString(extras)
			if err != nil {
				return fmt.Errorf("--extras: %w", err)
			}
			lines := make([]allocate.Line, len(args))
			for i, arg := range args {
				if lines[i], err = parseLine(arg); err != nil {
					return err
				}
			}

			shares := allocate.Allocate(lines, total, currency)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "LINE\tQTY\tUNIT COST\tSHARE\tLANDED UNIT COST")
			for i, l := range lines {
				landed, err := allocate.LandedUnitCost(l, shares[i])
				if err != nil {
					return fmt.Errorf("line %d: %w", i+1, err)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i+1, l.Quantity, l.UnitCost,
					money.Format(shares[i], currency), landed.StringFixed(allocate.UnitCostPlaces))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&extras, "extras", "0", "shared costs to allocate")
	cmd.Flags().StringVar(&currency, "currency", "USD", "currency of the costs")

	return cmd
}

func parseLine(s string) (allocate.Line, error) {
	q, u, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return allocate.Line{}, fmt.Errorf("line %q must look like <qty>x<unit-cost>", s)
	}
	qty, err := decimal.NewFromString(q)
	if err != nil {
		return allocate.Line{}, fmt.Errorf("line %q quantity: %w", s, err)
	}
	cost, err := decimal.NewFromString(u)
	if err != nil {
		return allocate.Line{}, fmt.Errorf("line %q unit cost: %w", s, err)
	}
	return allocate.Line{Quantity: qty, UnitCost: cost}, nil
}
