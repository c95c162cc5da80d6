package table

import (
	"fmt"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindDecimal
	KindCategory
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindDecimal:
		return "decimal"
	case KindCategory:
		return "category"
	default:
		return "null"
	}
}

// Value is a single cell. The zero Value is null ("no value"), which is distinct from empty text.
type Value struct {
	Kind Kind
	Text string
	Num  float64
}

func Null() Value                 { return Value{} }
func Text(s string) Value         { return Value{Kind: KindText, Text: s} }
func Decimal(f float64) Value     { return Value{Kind: KindDecimal, Num: f} }
func Category(label string) Value { return Value{Kind: KindCategory, Text: label} }

func (v Value) IsNull() bool { return v.Kind == KindNull }

// Equal reports whether two cells hold the same variant and payload. Null equals null.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindDecimal:
		return v.Num == o.Num
	default:
		return v.Text == o.Text
	}
}

// String renders the cell for CSV output; null renders as "".
func (v Value) String() string {
	switch v.Kind {
	case KindText, KindCategory:
		return v.Text
	case KindDecimal:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return ""
	}
}

// Row holds one Value per table column, in column order.
type Row []Value

// Table is an ordered collection of rows sharing a fixed set of named columns.
type Table struct {
	columns []string
	index   map[string]int
	Rows    []Row
}

// MissingColumnError is returned when an operation needs a column the table does not have.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required column %q", e.Column)
}

// New returns an empty table with the given columns.
func New(columns ...string) *Table {
	t := &Table{
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range t.columns {
		t.index[c] = i
	}
	return t
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

func (t *Table) Len() int { return len(t.Rows) }

// Index returns the position of column name.
func (t *Table) Index(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// MustIndex returns the position of column name or a *MissingColumnError.
func (t *Table) MustIndex(name string) (int, error) {
	i, ok := t.index[name]
	if !ok {
		return -1, &MissingColumnError{Column: name}
	}
	return i, nil
}

// Append adds a row. The row must have exactly one value per column.
func (t *Table) Append(row Row) error {
	if len(row) != len(t.columns) {
		return fmt.Errorf("row has %d values, want %d", len(row), len(t.columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// AddColumn appends a column filled with nulls and returns its index. Adding an existing
// column returns the existing index and leaves the data untouched.
func (t *Table) AddColumn(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	t.columns = append(t.columns, name)
	i := len(t.columns) - 1
	t.index[name] = i
	for r := range t.Rows {
		t.Rows[r] = append(t.Rows[r], Null())
	}
	return i
}

// Clone returns a deep copy: rows of the clone can be rewritten without touching t.
func (t *Table) Clone() *Table {
	out := New(t.columns...)
	out.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = append(Row(nil), r...)
	}
	return out
}

// Empty returns a table with the same columns and no rows.
func (t *Table) Empty() *Table {
	return New(t.columns...)
}

// Get returns the value at row r for the named column.
func (t *Table) Get(r int, column string) (Value, bool) {
	i, ok := t.index[column]
	if !ok || r < 0 || r >= len(t.Rows) {
		return Value{}, false
	}
	return t.Rows[r][i], true
}

// ColumnKind reports the kind shared by every non-null value in a column. Columns that are
// entirely null report KindNull; columns mixing kinds report KindText.
func (t *Table) ColumnKind(i int) Kind {
	kind := KindNull
	for _, r := range t.Rows {
		v := r[i]
		if v.IsNull() {
			continue
		}
		if kind == KindNull {
			kind = v.Kind
			continue
		}
		if kind != v.Kind {
			return KindText
		}
	}
	return kind
}

// ColumnHasNull reports whether any row holds null in column i.
func (t *Table) ColumnHasNull(i int) bool {
	for _, r := range t.Rows {
		if r[i].IsNull() {
			return true
		}
	}
	return false
}
