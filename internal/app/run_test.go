package app_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/palantir/catalog-cleaning-pipeline/internal/app"
	"github.com/palantir/catalog-cleaning-pipeline/internal/clean"
	"github.com/palantir/catalog-cleaning-pipeline/internal/config"
	"github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/core"
	"github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/schema"
	"github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/table"
)

const catalogCSV = `ProductID,ProductBrand,ProductName,Gender,PrimaryColor,Price (INR),Description
101,  Nike  ,Nike Air-Max 2020!!, Men ,,2999,Great shoe!!
102,puma,PUMA Suede Classic,Women, Red ,1500,"Soft  suede, classic."
102,puma,PUMA Suede Classic,Women, Red ,1500,"Soft  suede, classic."
103,Adidas,Ultraboost,MEN,Black,abc,Run fast
104,Reebok,Reebok Club C,Unisex," ",4000,Court classic
105,Nike,Air Force 1,Men,White,5000,Iconic
`

func writeInput(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "products.csv")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return p
}

func sqliteConfig(t *testing.T, input string) config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Database = config.Database{Driver: schema.DialectSQLite, Name: filepath.Join(t.TempDir(), "catalog.sqlite")}
	cfg.CSVPath = input
	return cfg
}

type productRow struct {
	ID       string
	Brand    string
	Name     string
	Gender   string
	Color    string
	Price    sql.NullFloat64
	Desc     string
	Category sql.NullString
}

func readProducts(t *testing.T, path string) []productRow {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT "ProductID", "ProductBrand", "ProductName", "Gender", "PrimaryColor", "Price (INR)", "Description", "PriceCategory" FROM "products" ORDER BY rowid`)
	if err != nil {
		t.Fatalf("query products: %v", err)
	}
	defer rows.Close()
	var out []productRow
	for rows.Next() {
		var r productRow
		if err := rows.Scan(&r.ID, &r.Brand, &r.Name, &r.Gender, &r.Color, &r.Price, &r.Desc, &r.Category); err != nil {
			t.Fatalf("scan: %v", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	return out
}

func TestRun_SQLiteEndToEnd(t *testing.T) {
	cfg := sqliteConfig(t, writeInput(t, catalogCSV))
	obsCore, logs := observer.New(zap.InfoLevel)

	report, err := app.Run(context.Background(), cfg, zap.New(obsCore))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Removed() != 3 || report.Coerced() != 1 {
		t.Fatalf("unexpected report: removed=%d coerced=%d", report.Removed(), report.Coerced())
	}

	want := []productRow{
		{ID: "102", Brand: "Puma", Name: "suede classic", Gender: "women", Color: "red", Price: sql.NullFloat64{Float64: 1500, Valid: true}, Desc: "Soft suede classic", Category: sql.NullString{String: "Low", Valid: true}},
		{ID: "103", Brand: "Adidas", Name: "ultraboost", Gender: "men", Color: "black", Desc: "Run fast"},
		{ID: "105", Brand: "Nike", Name: "air force 1", Gender: "men", Color: "white", Price: sql.NullFloat64{Float64: 5000, Valid: true}, Desc: "Iconic", Category: sql.NullString{String: "High", Valid: true}},
	}
	if diff := cmp.Diff(want, readProducts(t, cfg.Database.Name)); diff != "" {
		t.Fatalf("products mismatch (-want +got):\n%s", diff)
	}

	stageLogs := logs.FilterMessage("stage complete").All()
	if len(stageLogs) != len(clean.StageOrder) {
		t.Fatalf("expected %d stage logs, got %d", len(clean.StageOrder), len(stageLogs))
	}
	dedupe := stageLogs[0].ContextMap()
	if dedupe["stage"] != clean.StageDedupe || dedupe["removed"] != int64(1) {
		t.Fatalf("unexpected dedupe log: %#v", dedupe)
	}
	filter := stageLogs[len(stageLogs)-1].ContextMap()
	if filter["stage"] != clean.StageFilterPrimaryColor || filter["removed"] != int64(2) {
		t.Fatalf("unexpected filter log: %#v", filter)
	}
	if logs.FilterMessage("run complete").Len() != 1 {
		t.Fatalf("missing run complete log")
	}

	// A second run replaces rather than appends.
	if _, err := app.Run(context.Background(), cfg, zap.NewNop()); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if got := readProducts(t, cfg.Database.Name); len(got) != 3 {
		t.Fatalf("expected table replacement, got %d rows", len(got))
	}
}

func TestRun_FatalErrors(t *testing.T) {
	t.Run("missing price column", func(t *testing.T) {
		in := writeInput(t, "ProductID,ProductBrand,ProductName,Gender,PrimaryColor,Description\n1,b,n,g,red,d\n")
		cfg := sqliteConfig(t, in)
		_, err := app.Run(context.Background(), cfg, nil)
		var fatal *core.FatalError
		if !errors.As(err, &fatal) || fatal.Stage != app.StepLoad {
			t.Fatalf("expected load failure, got %v", err)
		}
		var mc *table.MissingColumnError
		if !errors.As(err, &mc) || mc.Column != clean.ColPrice {
			t.Fatalf("expected missing price column, got %v", err)
		}
		if _, statErr := os.Stat(cfg.Database.Name); statErr == nil {
			if rows := tableCount(t, cfg.Database.Name); rows != 0 {
				t.Fatalf("nothing may be persisted on fatal error")
			}
		}
	})

	t.Run("unreadable input", func(t *testing.T) {
		cfg := sqliteConfig(t, filepath.Join(t.TempDir(), "missing.csv"))
		_, err := app.Run(context.Background(), cfg, nil)
		var fatal *core.FatalError
		if !errors.As(err, &fatal) || fatal.Stage != app.StepLoad {
			t.Fatalf("expected load failure, got %v", err)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := config.Defaults()
		_, err := app.Run(context.Background(), cfg, nil)
		var fatal *core.FatalError
		if err == nil || errors.As(err, &fatal) {
			t.Fatalf("expected plain config error, got %v", err)
		}
	})

	t.Run("unwritable destination", func(t *testing.T) {
		cfg := sqliteConfig(t, writeInput(t, catalogCSV))
		cfg.Database.Name = filepath.Join(t.TempDir(), "no", "such", "dir", "x.sqlite")
		_, err := app.Run(context.Background(), cfg, nil)
		var fatal *core.FatalError
		if !errors.As(err, &fatal) || (fatal.Stage != app.StepConnect && fatal.Stage != app.StepStore) {
			t.Fatalf("expected connect/store failure, got %v", err)
		}
	})
}

func tableCount(t *testing.T, path string) int {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'`).Scan(&n); err != nil {
		t.Fatalf("count tables: %v", err)
	}
	return n
}

func TestRunLocal(t *testing.T) {
	in := writeInput(t, catalogCSV)
	out := filepath.Join(t.TempDir(), "cleaned.csv")

	report, err := app.RunLocal(context.Background(), in, out, ',', zap.NewNop())
	if err != nil {
		t.Fatalf("RunLocal failed: %v", err)
	}
	if len(report.Stages) != len(clean.StageOrder) {
		t.Fatalf("unexpected report: %#v", report)
	}

	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want := "ProductID,ProductBrand,ProductName,Gender,PrimaryColor,Price (INR),Description,PriceCategory\n" +
		"102,Puma,suede classic,women,red,1500,Soft suede classic,Low\n" +
		"103,Adidas,ultraboost,men,black,,Run fast,\n" +
		"105,Nike,air force 1,men,white,5000,Iconic,High\n"
	if diff := cmp.Diff(want, string(b)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_LogsRedactedDSN(t *testing.T) {
	const password = "p@ss/w0rd x"
	cfg := config.Defaults()
	cfg.CSVPath = writeInput(t, catalogCSV)
	cfg.Database = config.Database{Driver: schema.DialectMySQL, Username: "etl", Password: password, Host: "127.0.0.1", Port: 1, Name: "shop"}
	cfg.ConnectTimeout = 2 * time.Second
	obsCore, logs := observer.New(zap.InfoLevel)

	_, err := app.Run(context.Background(), cfg, zap.New(obsCore))
	var fatal *core.FatalError
	if !errors.As(err, &fatal) || fatal.Stage != app.StepConnect {
		t.Fatalf("expected connect failure, got %v", err)
	}

	start := logs.FilterMessage("run start").All()
	if len(start) != 1 {
		t.Fatalf("expected one run start log, got %d", len(start))
	}
	dsn, _ := start[0].ContextMap()["dsn"].(string)
	if strings.Contains(dsn, password) || !strings.HasPrefix(dsn, "etl:<redacted>@tcp(127.0.0.1:1)/shop") {
		t.Fatalf("unexpected dsn in log: %q", dsn)
	}
}
