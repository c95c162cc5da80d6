package schema

import (
	"fmt"
	"strings"

	"github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/table"
)

// Dialect selects the SQL flavor of the destination database.
type Dialect string

const (
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Field captures the minimal behavior-relevant schema fields.
type Field struct {
	Name     string
	Kind     table.Kind
	Nullable bool
}

// DatasetContract is the logical schema of the destination table.
type DatasetContract struct {
	Fields []Field
}

// NormalizeDialect maps a user-supplied driver name onto a Dialect. Empty input selects MySQL.
func NormalizeDialect(raw string) (Dialect, error) {
	s := strings.TrimSpace(strings.ToLower(raw))
	switch s {
	case "", "mysql", "mariadb":
		return DialectMySQL, nil
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", raw)
	}
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	switch d {
	case DialectPostgres:
		return "postgres"
	case DialectSQLite:
		return "sqlite"
	default:
		return "mysql"
	}
}

// ColumnType returns the SQL column type used for values of the given kind.
func (d Dialect) ColumnType(k table.Kind) string {
	switch k {
	case table.KindDecimal:
		switch d {
		case DialectPostgres:
			return "DOUBLE PRECISION"
		case DialectSQLite:
			return "REAL"
		default:
			return "DOUBLE"
		}
	case table.KindCategory:
		if d == DialectSQLite {
			return "TEXT"
		}
		return "VARCHAR(16)"
	default:
		return "TEXT"
	}
}

// QuoteIdent quotes a table or column name. Column names such as "Price (INR)" need it.
func (d Dialect) QuoteIdent(name string) string {
	if d == DialectMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Placeholder returns the bind parameter marker for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// InferContract derives the destination schema from the kinds of values present in each column.
// All-null columns are typed as text.
func InferContract(t *table.Table) DatasetContract {
	cols := t.Columns()
	fields := make([]Field, 0, len(cols))
	for i, name := range cols {
		kind := t.ColumnKind(i)
		if kind == table.KindNull {
			kind = table.KindText
		}
		fields = append(fields, Field{Name: name, Kind: kind, Nullable: t.ColumnHasNull(i)})
	}
	return DatasetContract{Fields: fields}
}
