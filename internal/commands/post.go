package commands

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/tally/internal/accounts"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/posting"
)

// batchFile is the YAML form of a posting request.
type batchFile struct {
	SourceType string    `yaml:"source_type"`
	SourceID   string    `yaml:"source_id"`
	Currency   string    `yaml:"currency"`
	Memo       string    `yaml:"memo"`
	EntityRef  string    `yaml:"entity_ref"`
	Legs       []legFile `yaml:"legs"`
}

// legFile names its account either by code or by role.
type legFile struct {
	Account string `yaml:"account"`
	Role    string `yaml:"role"`
	Debit   string `yaml:"debit"`
	Credit  string `yaml:"credit"`
	Ref     string `yaml:"ref"`
}

func (f *batchFile) request(registry *accounts.Registry) (posting.Request, error) {
	req := posting.Request{
		SourceType: f.SourceType,
		SourceID:   f.SourceID,
		Currency:   f.Currency,
		Memo:       f.Memo,
		EntityRef:  f.EntityRef,
	}
	for i, l := range f.Legs {
		code := l.Account
		if l.Role != "" {
			resolved, err := registry.Resolve(accounts.Role(l.Role))
			if err != nil {
				return req, fmt.Errorf("leg %d: %w: %w", i+1, posting.ErrUnknownAccount, err)
			}
			code = resolved
		}
		debit, err := parseAmount(l.Debit)
		if err != nil {
			return req, fmt.Errorf("leg %d debit: %w", i+1, err)
		}
		credit, err := parseAmount(l.Credit)
		if err != nil {
			return req, fmt.Errorf("leg %d credit: %w", i+1, err)
		}
		req.Legs = append(req.Legs, model.Leg{Account: code, Debit: debit, Credit: credit, Ref: l.Ref})
	}
	return req, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func newPostCommand(repo *string) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post a balanced batch from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading batch file: %w", err)
			}
			var bf batchFile
			if err := yaml.Unmarshal(data, &bf); err != nil {
				return fmt.Errorf("parsing batch file: %w", err)
			}

			a, err := openApp(cmd.Context(), *repo)
			if err != nil {
				return err
			}
			defer a.Close()

			req, err := bf.request(a.registry)
			if err != nil {
				return err
			}
			b, err := a.engine.Post(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Posted %s (%d legs)\n", b.Code, len(b.Entries))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "batch YAML file (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newReverseCommand(repo *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reverse <source-type> <source-id>",
		Short: "Reverse the active batch of a source event",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *repo)
			if err != nil {
				return err
			}
			defer a.Close()

			b, err := a.engine.Reverse(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reversed with %s\n", b.Code)
			return nil
		},
	}
}
