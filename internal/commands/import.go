package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/importer"
)

func newImportCommand(repo *string) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Post bank statement rows against suspense",
		Long: "Post bank statement rows against the suspense account. With no files, every CSV\n" +
			"in the project's import/ directory is imported and then moved to import/processed/.",
		RunE: func(cmd *cobra.Command, args []string) error {
			parser := importer.DefaultRegistry().Get(format)
			if parser == nil {
				return fmt.Errorf("unknown statement format %q", format)
			}

			a, err := openApp(cmd.Context(), *repo)
			if err != nil {
				return err
			}
			defer a.Close()

			files := args
			scanned := len(args) == 0
			if scanned {
				found, err := importer.Scan(a.root)
				if err != nil {
					return err
				}
				for _, f := range found {
					files = append(files, f.Path)
				}
			}

			im := importer.NewImporter(a.engine, a.registry, a.cfg.HomeCurrency, a.log)
			for _, path := range files {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("opening statement: %w", err)
				}
				txns, err := parser.Parse(f)
				f.Close()
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}

				res, err := im.Import(cmd.Context(), txns)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %s: %d posted, %d skipped\n", filepath.Base(path), res.Posted, res.Skipped)

				if scanned {
					if err := importer.MarkProcessed(a.root, filepath.Base(path)); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "chase", "statement format")

	return cmd
}
