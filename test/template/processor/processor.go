package processor

import (
	"context"
	"strings"

	"github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/core"
	"github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/table"
)

// UpperColumn upper-cases every text value in Column.
type UpperColumn struct {
	Column string
}

func (UpperColumn) Name() string { return "upper_column" }

func (u UpperColumn) Apply(_ context.Context, in *table.Table) (*table.Table, core.Stats, error) {
	col, err := in.MustIndex(u.Column)
	if err != nil {
		return nil, core.Stats{}, err
	}
	out := in.Clone()
	for _, r := range out.Rows {
		if r[col].Kind == table.KindText {
			r[col] = table.Text(strings.ToUpper(strings.TrimSpace(r[col].Text)))
		}
	}
	return out, core.Stats{}, nil
}
