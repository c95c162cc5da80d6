package clean

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/core"
	"github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/table"
)

// Dedupe drops rows that are identical in every column to an earlier row, keeping the first
// occurrence and the relative order of survivors.
func Dedupe(_ context.Context, in *table.Table) (*table.Table, core.Stats, error) {
	out := in.Empty()
	seen := make(map[string]struct{}, in.Len())
	for _, r := range in.Rows {
		k := rowKey(r)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out.Rows = append(out.Rows, append(table.Row(nil), r...))
	}
	return out, core.Stats{Removed: in.Len() - out.Len()}, nil
}

// rowKey encodes a row so that two rows share a key exactly when every value is Equal.
func rowKey(r table.Row) string {
	var b strings.Builder
	for _, v := range r {
		b.WriteString(strconv.Itoa(int(v.Kind)))
		b.WriteByte(':')
		switch v.Kind {
		case table.KindNull:
		case table.KindDecimal:
			b.WriteString(strconv.FormatUint(math.Float64bits(v.Num), 16))
		default:
			b.WriteString(strconv.Itoa(len(v.Text)))
			b.WriteByte(':')
			b.WriteString(v.Text)
		}
		b.WriteByte(';')
	}
	return b.String()
}

// FillMissingColor replaces null PrimaryColor values with UnknownColor.
func FillMissingColor(_ context.Context, in *table.Table) (*table.Table, core.Stats, error) {
	col, err := in.MustIndex(ColPrimaryColor)
	if err != nil {
		return nil, core.Stats{}, err
	}
	out := in.Clone()
	for _, r := range out.Rows {
		if r[col].IsNull() {
			r[col] = table.Text(UnknownColor)
		}
	}
	return out, core.Stats{}, nil
}

// NormalizeTypes renders ProductID as text and parses Price (INR) as a decimal. Prices that do
// not parse to a finite number become null and are counted in Stats.Coerced.
func NormalizeTypes(_ context.Context, in *table.Table) (*table.Table, core.Stats, error) {
	idCol, err := in.MustIndex(ColProductID)
	if err != nil {
		return nil, core.Stats{}, err
	}
	priceCol, err := in.MustIndex(ColPrice)
	if err != nil {
		return nil, core.Stats{}, err
	}

	var stats core.Stats
	out := in.Clone()
	for _, r := range out.Rows {
		r[idCol] = table.Text(r[idCol].String())

		price, ok := parseDecimal(r[priceCol])
		if !ok {
			if !r[priceCol].IsNull() {
				stats.Coerced++
			}
			r[priceCol] = table.Null()
			continue
		}
		r[priceCol] = table.Decimal(price)
	}
	return out, stats, nil
}

func parseDecimal(v table.Value) (float64, bool) {
	switch v.Kind {
	case table.KindDecimal:
		return v.Num, finite(v.Num)
	case table.KindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
		if err != nil || !finite(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// StripBrandPrefix removes a leading copy of ProductBrand from ProductName. The comparison
// ignores case; the remainder keeps its original casing. Rows missing either value keep their
// name (trimmed when it is text).
func StripBrandPrefix(_ context.Context, in *table.Table) (*table.Table, core.Stats, error) {
	brandCol, err := in.MustIndex(ColProductBrand)
	if err != nil {
		return nil, core.Stats{}, err
	}
	nameCol, err := in.MustIndex(ColProductName)
	if err != nil {
		return nil, core.Stats{}, err
	}

	out := in.Clone()
	for _, r := range out.Rows {
		if r[nameCol].Kind != table.KindText {
			continue
		}
		name := strings.TrimSpace(r[nameCol].Text)
		if r[brandCol].Kind == table.KindText {
			name = stripPrefixFold(name, strings.TrimSpace(r[brandCol].Text))
		}
		r[nameCol] = table.Text(name)
	}
	return out, core.Stats{}, nil
}

// stripPrefixFold returns name without a case-insensitive leading brand, trimmed. An empty
// brand matches every name and strips nothing.
func stripPrefixFold(name, brand string) string {
	if len(brand) > len(name) || !strings.EqualFold(name[:len(brand)], brand) {
		return name
	}
	return strings.TrimSpace(name[len(brand):])
}

// StandardizeText applies the per-column case and character normalization.
func StandardizeText(_ context.Context, in *table.Table) (*table.Table, core.Stats, error) {
	steps := []struct {
		col string
		fn  func(string) string
	}{
		{ColProductBrand, func(s string) string { return CleanString(titleCase(strings.TrimSpace(s))) }},
		{ColProductName, func(s string) string { return CleanString(lowerCase(strings.TrimSpace(s))) }},
		{ColGender, func(s string) string { return lowerCase(strings.TrimSpace(s)) }},
		{ColPrimaryColor, func(s string) string { return lowerCase(strings.TrimSpace(s)) }},
		{ColDescription, CleanString},
	}

	idx := make([]int, len(steps))
	for i, st := range steps {
		col, err := in.MustIndex(st.col)
		if err != nil {
			return nil, core.Stats{}, err
		}
		idx[i] = col
	}

	out := in.Clone()
	for _, r := range out.Rows {
		for i, st := range steps {
			r[idx[i]] = mapText(r[idx[i]], st.fn)
		}
	}
	return out, core.Stats{}, nil
}

// FilterPrimaryColor keeps rows whose PrimaryColor is non-empty text other than "unknown".
func FilterPrimaryColor(_ context.Context, in *table.Table) (*table.Table, core.Stats, error) {
	col, err := in.MustIndex(ColPrimaryColor)
	if err != nil {
		return nil, core.Stats{}, err
	}
	out := in.Empty()
	for _, r := range in.Rows {
		if !validColor(r[col]) {
			continue
		}
		out.Rows = append(out.Rows, append(table.Row(nil), r...))
	}
	return out, core.Stats{Removed: in.Len() - out.Len()}, nil
}

func validColor(v table.Value) bool {
	if v.Kind != table.KindText {
		return false
	}
	c := strings.TrimSpace(v.Text)
	return c != "" && !strings.EqualFold(c, UnknownColor)
}
