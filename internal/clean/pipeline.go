package clean

import (
	"context"
	"fmt"
	"slices"

	"github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/core"
	"github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/table"
)

// Stage names, in the order the pipeline runs them.
const (
	StageDedupe             = "dedupe"
	StageFillMissingColor   = "fill_missing_color"
	StageNormalizeTypes     = "normalize_types"
	StageStripBrandPrefix   = "strip_brand_prefix"
	StageStandardizeText    = "standardize_text"
	StageCategorizePrice    = "categorize_price"
	StageFilterPrimaryColor = "filter_primary_color"
)

// StageOrder is the declared contract of the cleaning pipeline.
var StageOrder = []string{
	StageDedupe,
	StageFillMissingColor,
	StageNormalizeTypes,
	StageStripBrandPrefix,
	StageStandardizeText,
	StageCategorizePrice,
	StageFilterPrimaryColor,
}

// orderRule says before must run earlier than after.
type orderRule struct {
	before, after string
	why           string
}

var orderRules = []orderRule{
	{StageFillMissingColor, StageStandardizeText, "the Unknown sentinel must be lower-cased with the other colors"},
	{StageStandardizeText, StageFilterPrimaryColor, "the color filter compares against lower-cased values"},
	{StageNormalizeTypes, StageCategorizePrice, "prices must be decimals before quantiles are taken"},
	{StageStripBrandPrefix, StageStandardizeText, "the brand prefix is matched before names are cleaned"},
	{StageCategorizePrice, StageFilterPrimaryColor, "price quantiles are taken over the unfiltered table"},
}

// ValidateOrder checks that names contains every stage once and respects the ordering rules.
func ValidateOrder(names []string) error {
	pos := make(map[string]int, len(names))
	for i, n := range names {
		if _, dup := pos[n]; dup {
			return fmt.Errorf("stage %q listed twice", n)
		}
		if !slices.Contains(StageOrder, n) {
			return fmt.Errorf("unknown stage %q", n)
		}
		pos[n] = i
	}
	for _, n := range StageOrder {
		if _, ok := pos[n]; !ok {
			return fmt.Errorf("missing stage %q", n)
		}
	}
	for _, r := range orderRules {
		if pos[r.before] > pos[r.after] {
			return fmt.Errorf("stage %q must run before %q: %s", r.before, r.after, r.why)
		}
	}
	return nil
}

var stageFuncs = map[string]func(context.Context, *table.Table) (*table.Table, core.Stats, error){
	StageDedupe:             Dedupe,
	StageFillMissingColor:   FillMissingColor,
	StageNormalizeTypes:     NormalizeTypes,
	StageStripBrandPrefix:   StripBrandPrefix,
	StageStandardizeText:    StandardizeText,
	StageCategorizePrice:    CategorizePrice,
	StageFilterPrimaryColor: FilterPrimaryColor,
}

// Stages returns the cleaning stages in StageOrder.
func Stages() []core.Stage {
	out := make([]core.Stage, 0, len(StageOrder))
	for _, name := range StageOrder {
		out = append(out, core.StageFunc{StageName: name, Fn: stageFuncs[name]})
	}
	return out
}

// Run applies every cleaning stage to in. onStage is passed through to core.RunStages.
func Run(ctx context.Context, in *table.Table, onStage func(core.StageReport)) (*table.Table, core.Report, error) {
	return core.RunStages(ctx, in, Stages(), onStage)
}
