package clean

import (
	"context"
	"math"
	"slices"

	"github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/core"
	"github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/table"
)

// Quantile cut points for the Low/Medium and Medium/High boundaries.
const (
	lowQuantile  = 0.33
	highQuantile = 0.66
)

// PriceBins holds the upper bounds of the Low and Medium bins. Anything above Medium is High.
type PriceBins struct {
	Low    float64
	Medium float64
}

// Label returns the category of price: the first bin whose upper bound is >= price.
func (b PriceBins) Label(price float64) string {
	switch {
	case price <= b.Low:
		return PriceLow
	case price <= b.Medium:
		return PriceMedium
	default:
		return PriceHigh
	}
}

// Quantile returns the q-quantile of sorted using linear interpolation between the two
// nearest ranks. sorted must be ascending and non-empty.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	h := float64(len(sorted)-1) * q
	lo := int(math.Floor(h))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// ComputePriceBins derives the bins from the non-null prices. ok is false when there are none.
func ComputePriceBins(prices []float64) (PriceBins, bool) {
	if len(prices) == 0 {
		return PriceBins{}, false
	}
	sorted := slices.Clone(prices)
	slices.Sort(sorted)
	return PriceBins{
		Low:    Quantile(sorted, lowQuantile),
		Medium: Quantile(sorted, highQuantile),
	}, true
}

// CategorizePrice adds PriceCategory, labelling each row by where its price falls among the
// 0.33 and 0.66 quantiles of all prices in the table. Rows without a price get null.
//
// Price (INR) must already hold decimals (see NormalizeTypes); other values count as no price.
func CategorizePrice(_ context.Context, in *table.Table) (*table.Table, core.Stats, error) {
	priceCol, err := in.MustIndex(ColPrice)
	if err != nil {
		return nil, core.Stats{}, err
	}

	prices := make([]float64, 0, in.Len())
	for _, r := range in.Rows {
		if r[priceCol].Kind == table.KindDecimal {
			prices = append(prices, r[priceCol].Num)
		}
	}

	out := in.Clone()
	catCol := out.AddColumn(ColPriceCategory)
	bins, ok := ComputePriceBins(prices)
	for _, r := range out.Rows {
		if !ok || r[priceCol].Kind != table.KindDecimal {
			r[catCol] = table.Null()
			continue
		}
		r[catCol] = table.Category(bins.Label(r[priceCol].Num))
	}
	return out, core.Stats{}, nil
}
