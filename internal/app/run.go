package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/palantir/catalog-cleaning-pipeline/internal/clean"
	"github.com/palantir/catalog-cleaning-pipeline/internal/config"
	"github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/core"
	localio "github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/io/local"
	sqlio "github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/io/sql"
)

// Step names used in FatalError for failures outside the cleaning stages.
const (
	StepConnect = "connect"
	StepLoad    = "load"
	StepStore   = "store"
)

// RunLocal cleans a local input CSV and writes the result to a local output CSV.
func RunLocal(ctx context.Context, inputPath, outputPath string, delimiter rune, logger *zap.Logger) (core.Report, error) {
	logger = withRunID(logger).With(zap.String("mode", "local"))
	logger.Info("run start", zap.String("input", inputPath), zap.String("output", outputPath))

	src := localio.FileSource{Path: inputPath, Options: readOptions(delimiter)}
	return execute(ctx, src, localio.FileSink{Path: outputPath}, logger)
}

// Run cleans the configured input CSV and replaces the destination table with the result.
func Run(ctx context.Context, cfg config.Config, logger *zap.Logger) (core.Report, error) {
	if err := cfg.Validate(); err != nil {
		return core.Report{}, err
	}
	logger = withRunID(logger).With(zap.String("mode", "database"))

	logger.Info(
		"run start",
		zap.String("input", cfg.CSVPath),
		zap.String("driver", string(cfg.Database.Driver)),
		zap.String("dsn", cfg.Database.RedactedDSN(cfg.ConnectTimeout)),
		zap.String("table", cfg.Table),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Float64("write_rate_limit", cfg.WriteRateLimit),
	)

	connectStart := time.Now()
	db, err := sqlio.Open(ctx, cfg.Database.Driver, cfg.Database.DSN(cfg.ConnectTimeout), cfg.ConnectTimeout)
	if err != nil {
		return core.Report{}, &core.FatalError{Stage: StepConnect, Err: err}
	}
	defer func() {
		_ = db.Close()
	}()
	logger.Info("connected to destination", zap.Duration("duration", time.Since(connectStart).Round(time.Millisecond)))

	src := localio.FileSource{Path: cfg.CSVPath, Options: readOptions(cfg.CSVDelimiter)}
	sink := sqlio.NewSink(db, sqlio.Options{
		Dialect:   cfg.Database.Driver,
		Table:     cfg.Table,
		BatchSize: cfg.BatchSize,
		RateLimit: cfg.WriteRateLimit,
	})
	return execute(ctx, src, sink, logger)
}

func execute(ctx context.Context, src core.InputAdapter, dst core.OutputAdapter, logger *zap.Logger) (core.Report, error) {
	runStart := time.Now()

	readStart := time.Now()
	in, err := src.Load(ctx)
	if err != nil {
		return core.Report{}, &core.FatalError{Stage: StepLoad, Err: err}
	}
	logger.Info(
		"loaded input table",
		zap.Int("rows", in.Len()),
		zap.Int("columns", len(in.Columns())),
		zap.Duration("duration", time.Since(readStart).Round(time.Millisecond)),
	)

	out, report, err := clean.Run(ctx, in, func(sr core.StageReport) {
		logger.Info(
			"stage complete",
			zap.String("stage", sr.Stage),
			zap.Int("rows_in", sr.RowsIn),
			zap.Int("rows_out", sr.RowsOut),
			zap.Int("removed", sr.Stats.Removed),
			zap.Int("coerced", sr.Stats.Coerced),
			zap.Duration("duration", sr.Duration.Round(time.Microsecond)),
		)
	})
	if err != nil {
		return report, err
	}

	writeStart := time.Now()
	if err := dst.Store(ctx, out); err != nil {
		return report, &core.FatalError{Stage: StepStore, Err: err}
	}
	logger.Info(
		"run complete",
		zap.Int("rows_written", out.Len()),
		zap.Int("rows_removed", report.Removed()),
		zap.Int("prices_coerced", report.Coerced()),
		zap.Duration("write_duration", time.Since(writeStart).Round(time.Millisecond)),
		zap.Duration("total_duration", time.Since(runStart).Round(time.Millisecond)),
	)
	return report, nil
}

func readOptions(delimiter rune) localio.ReadOptions {
	return localio.ReadOptions{Delimiter: delimiter, Required: clean.RequiredColumns}
}

func withRunID(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger.With(zap.String("run", fmt.Sprintf("run-%d", time.Now().UnixNano())))
}
