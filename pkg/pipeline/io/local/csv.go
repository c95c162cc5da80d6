package local

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/table"
)

// naMarkers are cell contents that load as null rather than text. The set matches the
// missing-value markers common CSV tooling (pandas read_csv) recognises by default.
var naMarkers = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// ReadOptions controls CSV parsing.
type ReadOptions struct {
	// Delimiter defaults to ','.
	Delimiter rune
	// Required lists columns that must be present in the header.
	Required []string
}

// ReadTableCSV reads a CSV with a header row into a table. Every non-null cell loads as text;
// typing is left to the pipeline stages.
func ReadTableCSV(r io.Reader, opts ReadOptions) (*table.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, col := range header {
		name := strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		if seen[name] {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = true
		cols[i] = name
	}
	for _, req := range opts.Required {
		if !seen[req] {
			return nil, &table.MissingColumnError{Column: req}
		}
	}

	t := table.New(cols...)
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return t, nil
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(rec) != len(cols) {
			return nil, fmt.Errorf("row %d has %d columns, want %d", line, len(rec), len(cols))
		}
		row := make(table.Row, len(rec))
		for i, cell := range rec {
			if _, na := naMarkers[cell]; na {
				row[i] = table.Null()
				continue
			}
			row[i] = table.Text(cell)
		}
		if err := t.Append(row); err != nil {
			return nil, err
		}
	}
}

// WriteTableCSV writes the table with its header. Null cells are written as empty fields.
func WriteTableCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return err
	}
	rec := make([]string, len(t.Columns()))
	for _, r := range t.Rows {
		for i, v := range r {
			rec[i] = v.String()
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FileSource loads a table from a CSV file on disk.
type FileSource struct {
	Path    string
	Options ReadOptions
}

func (s FileSource) Load(_ context.Context) (*table.Table, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	t, err := ReadTableCSV(f, s.Options)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	return t, nil
}

// FileSink writes a table to a CSV file, replacing any existing file.
type FileSink struct {
	Path string
}

func (s FileSink) Store(_ context.Context, t *table.Table) error {
	f, err := os.Create(s.Path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	if err := WriteTableCSV(f, t); err != nil {
		return err
	}
	return f.Close()
}
