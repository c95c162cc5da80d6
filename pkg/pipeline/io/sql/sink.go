package sqlio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/schema"
	"github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/table"
)

const (
	stagingSuffix  = "__staging"
	previousSuffix = "__old"
)

// Options configures how the destination table is written.
type Options struct {
	Dialect schema.Dialect
	// Table is the destination table name. Defaults to "products".
	Table string
	// BatchSize is the number of rows per INSERT statement. Defaults to 500.
	BatchSize int
	// RateLimit caps INSERT batches per second. Set to <=0 to disable.
	RateLimit float64
}

func (o Options) withDefaults() Options {
	if o.Dialect == "" {
		o.Dialect = schema.DialectMySQL
	}
	if strings.TrimSpace(o.Table) == "" {
		o.Table = "products"
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 500
	}
	return o
}

// Sink replaces a relational table with the contents of a pipeline table.
type Sink struct {
	db      *sql.DB
	opts    Options
	limiter *rate.Limiter
}

// NewSink returns a Sink writing through db. The caller owns db.
func NewSink(db *sql.DB, opts Options) *Sink {
	opts = opts.withDefaults()
	s := &Sink{db: db, opts: opts}
	if opts.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return s
}

// Table returns the destination table name.
func (s *Sink) Table() string { return s.opts.Table }

// Store writes t into a staging table and then swaps it in place of the destination, so a
// failed write leaves the previous destination contents in place.
func (s *Sink) Store(ctx context.Context, t *table.Table) error {
	if t == nil {
		return errors.New("nil table")
	}
	d := s.opts.Dialect
	staging := s.opts.Table + stagingSuffix
	contract := schema.InferContract(t)

	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+d.QuoteIdent(staging)); err != nil {
		return fmt.Errorf("drop stale staging table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, createTableSQL(d, staging, contract)); err != nil {
		return fmt.Errorf("create staging table: %w", err)
	}
	if err := s.insertAll(ctx, staging, contract, t); err != nil {
		s.dropStaging(staging)
		return err
	}
	if err := s.swap(ctx, staging); err != nil {
		s.dropStaging(staging)
		return err
	}
	return nil
}

func (s *Sink) insertAll(ctx context.Context, staging string, contract schema.DatasetContract, t *table.Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for start := 0; start < len(t.Rows); start += s.opts.BatchSize {
		end := min(start+s.opts.BatchSize, len(t.Rows))
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		batch := t.Rows[start:end]
		query := insertSQL(s.opts.Dialect, staging, contract, len(batch))
		args := make([]any, 0, len(batch)*len(contract.Fields))
		for _, r := range batch {
			for _, v := range r {
				args = append(args, sqlValue(v))
			}
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert rows %d-%d: %w", start+1, end, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit inserts: %w", err)
	}
	return nil
}

func (s *Sink) swap(ctx context.Context, staging string) error {
	d := s.opts.Dialect
	dest := d.QuoteIdent(s.opts.Table)
	src := d.QuoteIdent(staging)

	if d == schema.DialectMySQL {
		// MySQL DDL commits implicitly, so the swap relies on RENAME TABLE being atomic instead.
		for _, stmt := range mysqlSwapStatements(s.opts.Table, staging) {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("swap staging table: %w", err)
			}
		}
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin swap transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+dest); err != nil {
		return fmt.Errorf("drop destination table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "ALTER TABLE "+src+" RENAME TO "+dest); err != nil {
		return fmt.Errorf("rename staging table: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit swap: %w", err)
	}
	return nil
}

// mysqlSwapStatements replaces dest with staging. The destination always exists, possibly as an
// empty copy, when the two-way RENAME runs, so readers see either the old or the new table.
// A leftover previous table from an interrupted run is dropped first.
func mysqlSwapStatements(dest, staging string) []string {
	d := schema.DialectMySQL
	previous := d.QuoteIdent(dest + previousSuffix)
	destQ := d.QuoteIdent(dest)
	stagingQ := d.QuoteIdent(staging)
	return []string{
		"DROP TABLE IF EXISTS " + previous,
		"CREATE TABLE IF NOT EXISTS " + destQ + " LIKE " + stagingQ,
		"RENAME TABLE " + destQ + " TO " + previous + ", " + stagingQ + " TO " + destQ,
		"DROP TABLE IF EXISTS " + previous,
	}
}

// dropStaging is best effort and runs on a fresh context: ctx may already be cancelled.
func (s *Sink) dropStaging(staging string) {
	_, _ = s.db.ExecContext(context.Background(), "DROP TABLE IF EXISTS "+s.opts.Dialect.QuoteIdent(staging))
}

func createTableSQL(d schema.Dialect, name string, contract schema.DatasetContract) string {
	defs := make([]string, 0, len(contract.Fields))
	for _, f := range contract.Fields {
		def := d.QuoteIdent(f.Name) + " " + d.ColumnType(f.Kind)
		if !f.Nullable {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	return "CREATE TABLE " + d.QuoteIdent(name) + " (" + strings.Join(defs, ", ") + ")"
}

func insertSQL(d schema.Dialect, name string, contract schema.DatasetContract, rows int) string {
	cols := make([]string, len(contract.Fields))
	for i, f := range contract.Fields {
		cols[i] = d.QuoteIdent(f.Name)
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(d.QuoteIdent(name))
	b.WriteString(" (")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(") VALUES ")
	n := 0
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range cols {
			if c > 0 {
				b.WriteString(", ")
			}
			n++
			b.WriteString(d.Placeholder(n))
		}
		b.WriteByte(')')
	}
	return b.String()
}

func sqlValue(v table.Value) any {
	switch v.Kind {
	case table.KindDecimal:
		return v.Num
	case table.KindText, table.KindCategory:
		return v.Text
	default:
		return nil
	}
}
