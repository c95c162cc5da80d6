package core

import (
	"context"
	"time"

	"github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/table"
)

// StageReport records what one stage did to the table.
type StageReport struct {
	Stage    string
	RowsIn   int
	RowsOut  int
	Stats    Stats
	Duration time.Duration
}

// Report summarizes a run of RunStages.
type Report struct {
	Stages []StageReport
}

// Removed sums the rows removed across all stages.
func (r Report) Removed() int {
	n := 0
	for _, s := range r.Stages {
		n += s.Stats.Removed
	}
	return n
}

// Coerced sums the cells coerced to null across all stages.
func (r Report) Coerced() int {
	n := 0
	for _, s := range r.Stages {
		n += s.Stats.Coerced
	}
	return n
}

// RunStages applies stages in order, handing each stage's output to the next.
//
// onStage, if non-nil, is called after every successful stage. The first stage error stops the
// run and is returned as a *FatalError; no partial table is returned with it.
func RunStages(
	ctx context.Context,
	in *table.Table,
	stages []Stage,
	onStage func(StageReport),
) (*table.Table, Report, error) {
	var report Report
	cur := in
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return nil, report, &FatalError{Stage: st.Name(), Err: err}
		}
		start := time.Now()
		rowsIn := cur.Len()
		next, stats, err := st.Apply(ctx, cur)
		if err != nil {
			return nil, report, &FatalError{Stage: st.Name(), Err: err}
		}
		sr := StageReport{
			Stage:    st.Name(),
			RowsIn:   rowsIn,
			RowsOut:  next.Len(),
			Stats:    stats,
			Duration: time.Since(start),
		}
		report.Stages = append(report.Stages, sr)
		if onStage != nil {
			onStage(sr)
		}
		cur = next
	}
	return cur, report, nil
}
