package core

import (
	"context"
	"fmt"

	"github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/table"
)

// InputAdapter loads the table a pipeline run starts from.
type InputAdapter interface {
	Load(ctx context.Context) (*table.Table, error)
}

// OutputAdapter persists the table produced by a pipeline run.
type OutputAdapter interface {
	Store(ctx context.Context, t *table.Table) error
}

// Stats carries the row-level (recoverable) outcomes of one stage.
type Stats struct {
	// Removed counts rows dropped by the stage.
	Removed int
	// Coerced counts cells that could not be converted and became null.
	Coerced int
}

// Stage is one whole-table rewrite. Apply must not retain or mutate its input.
type Stage interface {
	Name() string
	Apply(ctx context.Context, in *table.Table) (*table.Table, Stats, error)
}

// StageFunc adapts a function to the Stage interface.
type StageFunc struct {
	StageName string
	Fn        func(ctx context.Context, in *table.Table) (*table.Table, Stats, error)
}

func (s StageFunc) Name() string { return s.StageName }

func (s StageFunc) Apply(ctx context.Context, in *table.Table) (*table.Table, Stats, error) {
	return s.Fn(ctx, in)
}

// FatalError marks an error that must abort the run. Stage names the step that failed
// ("load", "store", or a stage name).
type FatalError struct {
	Stage string
	Err   error
}

func (e *FatalError) Error() string {
	if e == nil || e.Err == nil {
		return "fatal error"
	}
	if e.Stage == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Err.Error())
}

func (e *FatalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
