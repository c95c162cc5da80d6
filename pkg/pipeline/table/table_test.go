package table_test

import (
	"errors"
	"testing"

	"github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/table"
)

func TestValueEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b table.Value
		want bool
	}{
		{name: "null equals null", a: table.Null(), b: table.Null(), want: true},
		{name: "null is not empty text", a: table.Null(), b: table.Text(""), want: false},
		{name: "same text", a: table.Text("red"), b: table.Text("red"), want: true},
		{name: "text case matters", a: table.Text("Red"), b: table.Text("red"), want: false},
		{name: "decimals", a: table.Decimal(2999), b: table.Decimal(2999), want: true},
		{name: "text vs category", a: table.Text("Low"), b: table.Category("Low"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Fatalf("Equal(%#v, %#v)=%t want=%t", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestValueString(t *testing.T) {
	if got := table.Decimal(2999).String(); got != "2999" {
		t.Fatalf("unexpected decimal rendering: %q", got)
	}
	if got := table.Decimal(12.5).String(); got != "12.5" {
		t.Fatalf("unexpected decimal rendering: %q", got)
	}
	if got := table.Null().String(); got != "" {
		t.Fatalf("unexpected null rendering: %q", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	tb := table.New("a", "b")
	if err := tb.Append(table.Row{table.Text("x"), table.Null()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cp := tb.Clone()
	cp.Rows[0][0] = table.Text("changed")
	if got := tb.Rows[0][0]; got.Text != "x" {
		t.Fatalf("clone shares rows with source: %#v", got)
	}
}

func TestAddColumn(t *testing.T) {
	tb := table.New("a")
	_ = tb.Append(table.Row{table.Text("x")})
	i := tb.AddColumn("b")
	if i != 1 || len(tb.Rows[0]) != 2 || !tb.Rows[0][1].IsNull() {
		t.Fatalf("unexpected table after AddColumn: %#v", tb.Rows)
	}
	if again := tb.AddColumn("b"); again != 1 || len(tb.Columns()) != 2 {
		t.Fatalf("AddColumn on existing column must be a no-op, got index %d cols %v", again, tb.Columns())
	}
}

func TestAppendRejectsWrongWidth(t *testing.T) {
	tb := table.New("a", "b")
	if err := tb.Append(table.Row{table.Text("x")}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestMustIndex(t *testing.T) {
	tb := table.New("a")
	_, err := tb.MustIndex("missing")
	var mc *table.MissingColumnError
	if !errors.As(err, &mc) || mc.Column != "missing" {
		t.Fatalf("expected MissingColumnError, got %v", err)
	}
}

func TestColumnKind(t *testing.T) {
	tb := table.New("price", "mixed", "empty")
	_ = tb.Append(table.Row{table.Decimal(1), table.Text("a"), table.Null()})
	_ = tb.Append(table.Row{table.Null(), table.Decimal(2), table.Null()})

	if got := tb.ColumnKind(0); got != table.KindDecimal {
		t.Fatalf("price kind=%s", got)
	}
	if got := tb.ColumnKind(1); got != table.KindText {
		t.Fatalf("mixed kind=%s", got)
	}
	if got := tb.ColumnKind(2); got != table.KindNull {
		t.Fatalf("empty kind=%s", got)
	}
	if !tb.ColumnHasNull(0) || tb.ColumnHasNull(1) {
		t.Fatalf("unexpected null detection")
	}
}
