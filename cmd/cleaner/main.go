package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/palantir/catalog-cleaning-pipeline/internal/app"
	"github.com/palantir/catalog-cleaning-pipeline/internal/config"
	"github.com/palantir/catalog-cleaning-pipeline/internal/logging"
	"github.com/palantir/catalog-cleaning-pipeline/internal/version"
	"github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/core"
	"github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/redact"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return 2
	}

	switch args[0] {
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	case "version":
		_, _ = fmt.Fprintln(stdout, version.Current)
		return 0
	case "run":
		return runDatabase(ctx, args[1:], stderr)
	case "local":
		return runLocal(ctx, args[1:], stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command: %s\n\n", args[0])
		usage(stderr)
		return 2
	}
}

func runDatabase(ctx context.Context, args []string, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.CSVPath, "input", cfg.CSVPath, "Input CSV file path (env: CSV_PATH)")
	fs.StringVar(&cfg.Table, "table", cfg.Table, "Destination table name (env: TABLE_NAME)")
	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Rows per INSERT statement (env: WRITE_BATCH_SIZE)")
	fs.Float64Var(&cfg.WriteRateLimit, "write-rate-limit", cfg.WriteRateLimit, "INSERT batches per second, 0 disables (env: WRITE_RATE_LIMIT)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if cfg.CSVPath == "" {
		_, _ = fmt.Fprintln(stderr, "run requires --input or CSV_PATH")
		return 2
	}
	if err := cfg.Validate(); err != nil {
		_, _ = fmt.Fprintf(stderr, "config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "config error: %s\n", err)
		return 2
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := app.Run(ctx, cfg, logger); err != nil {
		return fail(logger, stderr, "run failed", err)
	}
	return 0
}

func runLocal(ctx context.Context, args []string, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}

	fs := flag.NewFlagSet("local", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var inputPath string
	var outputPath string
	fs.StringVar(&inputPath, "input", cfg.CSVPath, "Input CSV file path (env: CSV_PATH)")
	fs.StringVar(&outputPath, "output", "", "Output CSV file path")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if inputPath == "" || outputPath == "" {
		_, _ = fmt.Fprintln(stderr, "local requires --input and --output")
		return 2
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "config error: %s\n", err)
		return 2
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := app.RunLocal(ctx, inputPath, outputPath, cfg.CSVDelimiter, logger); err != nil {
		return fail(logger, stderr, "local run failed", err)
	}
	return 0
}

// fail logs err and reports it on stderr. Fatal pipeline errors and anything else unexpected
// both exit 1; only usage and configuration problems exit 2.
func fail(logger *zap.Logger, stderr io.Writer, msg string, err error) int {
	text := redact.Secrets(err.Error())
	var fatal *core.FatalError
	if errors.As(err, &fatal) {
		logger.Error(msg, zap.String("step", fatal.Stage), zap.String("error", text))
	} else {
		logger.Error(msg, zap.String("error", text))
	}
	_, _ = fmt.Fprintf(stderr, "%s: %s\n", msg, text)
	return 1
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintf(w, `cleaner: product catalog cleaning pipeline

Usage:
  cleaner <command> [flags]

Commands:
  run      Clean CSV_PATH and replace the destination table
  local    Clean a local CSV and write the result to a local CSV
  version  Print the version

Examples:
  cleaner run --input products.csv
  cleaner local --input products.csv --output cleaned.csv

Environment (database):
  DB_DRIVER         mysql (default), postgres or sqlite
  USERNAME          Database user (required for mysql/postgres)
  PASSWORD          Database password
  HOST              Database host (required for mysql/postgres)
  PORT              Database port (default 3306 / 5432)
  DATABASE          Database name, or file path for sqlite (required)
  DB_SSLMODE        Postgres sslmode (default disable)
  TABLE_NAME        Destination table (default products)
  WRITE_BATCH_SIZE  Rows per INSERT (default 500)
  WRITE_RATE_LIMIT  INSERT batches per second, 0 disables
  CONNECT_TIMEOUT   Connection timeout (default 10s)

Environment (input / general):
  CSV_PATH          Input CSV file path
  CSV_DELIMITER     Input field delimiter (default ",")
  CONFIG_FILE       Optional YAML file with defaults for the settings above
  LOG_LEVEL         debug, info (default), warn, error
  LOG_FORMAT        json (default) or console

`)
}
