// Package importer turns bank statement exports into posted batches.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/cleared-dev/tally/internal/accounts"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/posting"
	"github.com/cleared-dev/tally/internal/store"
)

// SourceStatement is the source type of batches posted from statement rows.
const SourceStatement = "BANK_STATEMENT"

// Parser converts a bank CSV file into BankTransactions.
type Parser interface {
	Parse(r io.Reader) ([]model.BankTransaction, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a CSV file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&ChaseParser{})
	return r
}

const (
	// Dir is the import directory relative to a project root.
	Dir          = "import"
	processedDir = "import/processed"
)

// Scan returns CSV files in <root>/import/.
func Scan(root string) ([]FileInfo, error) {
	dir := filepath.Join(root, Dir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(root, fileName string) error {
	src := filepath.Join(root, Dir, fileName)
	dstDir := filepath.Join(root, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

// Result counts what an import did.
type Result struct {
	Posted  int
	Skipped int // already posted or zero amount
}

// Importer posts statement rows against the bank and suspense accounts.
// Rows are keyed by their reference, so re-importing a file posts nothing new.
type Importer struct {
	engine   *posting.Engine
	registry *accounts.Registry
	currency string
	log      *zap.Logger
}

// NewImporter creates an Importer posting in the bank account's currency.
func NewImporter(engine *posting.Engine, registry *accounts.Registry, currency string, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{engine: engine, registry: registry, currency: currency, log: log}
}

// Import posts every row that has not been posted before.
func (im *Importer) Import(ctx context.Context, txns []model.BankTransaction) (Result, error) {
	var res Result

	bank, err := im.registry.Resolve(accounts.RoleBank)
	if err != nil {
		return res, err
	}
	suspense, err := im.registry.Resolve(accounts.RoleSuspense)
	if err != nil {
		return res, err
	}

	for _, txn := range txns {
		if txn.Amount.IsZero() {
			res.Skipped++
			continue
		}
		_, err := im.engine.Batch(ctx, SourceStatement, txn.Reference)
		switch {
		case err == nil:
			res.Skipped++
			continue
		case !errors.Is(err, store.ErrNotFound):
			return res, err
		}

		debit, credit := suspense, bank
		if txn.Amount.IsPositive() {
			debit, credit = bank, suspense
		}
		amount := txn.Amount.Abs()
		_, err = im.engine.Post(ctx, posting.Request{
			SourceType: SourceStatement,
			SourceID:   txn.Reference,
			Currency:   im.currency,
			Memo:       txn.Description,
			Legs: []model.Leg{
				{Account: debit, Debit: amount, Ref: txn.Type},
				{Account: credit, Credit: amount, Ref: txn.Type},
			},
		})
		if err != nil {
			return res, fmt.Errorf("posting %s: %w", txn.Reference, err)
		}
		res.Posted++
	}

	im.log.Info("statement imported", zap.Int("posted", res.Posted), zap.Int("skipped", res.Skipped))
	return res, nil
}
