package commands

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/money"
)

// shipmentFile is the YAML form of a new shipment.
type shipmentFile struct {
	Code     string `yaml:"code"`
	Currency string `yaml:"currency"`
	Extras   string `yaml:"extras"`
	Lines    []struct {
		Product   string `yaml:"product"`
		Warehouse string `yaml:"warehouse"`
		Quantity  string `yaml:"quantity"`
		UnitCost  string `yaml:"unit_cost"`
	} `yaml:"lines"`
}

func (f *shipmentFile) shipment() (*model.Shipment, error) {
	extras, err := parseAmount(f.Extras)
	if err != nil {
		return nil, fmt.Errorf("extras: %w", err)
	}
	sh := &model.Shipment{Code: f.Code, Currency: f.Currency, ExtrasTotal: extras}
	for i, l := range f.Lines {
		qty, err := decimal.NewFromString(l.Quantity)
		if err != nil {
			return nil, fmt.Errorf("line %d quantity: %w", i+1, err)
		}
		cost, err := decimal.NewFromString(l.UnitCost)
		if err != nil {
			return nil, fmt.Errorf("line %d unit cost: %w", i+1, err)
		}
		sh.Lines = append(sh.Lines, model.ShipmentLine{
			ProductID:   l.Product,
			WarehouseID: l.Warehouse,
			Quantity:    qty,
			UnitCost:    cost,
		})
	}
	return sh, nil
}

func newShipmentCommand(repo *string) *cobra.Command {
	shipmentCmd := &cobra.Command{
		Use:   "shipment",
		Short: "Register and receive inbound shipments",
	}
	shipmentCmd.AddCommand(newShipmentAddCommand(repo), newShipmentReceiveCommand(repo), newStockCommand(repo))
	return shipmentCmd
}

func newShipmentAddCommand(repo *string) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a shipment from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading shipment file: %w", err)
			}
			var sf shipmentFile
			if err := yaml.Unmarshal(data, &sf); err != nil {
				return fmt.Errorf("parsing shipment file: %w", err)
			}
			sh, err := sf.shipment()
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), *repo)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.shipments.Create(cmd.Context(), sh); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", sh.Code, sh.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "shipment YAML file (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newShipmentReceiveCommand(repo *string) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "receive <id-or-code>",
		Short: "Book a shipment's arrival into stock and the ledger",
		Args:  cobra.ExactArgs(1),
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

			sh, err := a.shipments.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			sh, batch, err := a.shipments.Receive(cmd.Context(), sh.ID, when)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, l := range sh.Lines {
				fmt.Fprintf(out, "%s@%s +%s share %s landed %s\n", l.ProductID, l.WarehouseID, l.Quantity,
					money.Format(l.ExtraShare, sh.Currency), l.LandedUnitCost.String())
			}
			if batch != nil {
				fmt.Fprintf(out, "Posted %s\n", batch.Code)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "arrival date or RFC 3339 time (default now)")

	return cmd
}

func newStockCommand(repo *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stock <product> <warehouse>",
		Short: "Show on-hand quantity of a product in a warehouse",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *repo)
			if err != nil {
				return err
			}
			defer a.Close()

			level, err := a.shipments.Stock(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s@%s %s\n", level.ProductID, level.WarehouseID, level.Quantity)
			return nil
		},
	}
}
