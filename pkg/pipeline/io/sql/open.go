package sqlio

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Registered drivers, one per supported dialect.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/schema"
)

// Open connects to the destination database and verifies the connection within timeout.
// timeout <= 0 means no deadline beyond ctx.
func Open(ctx context.Context, d schema.Dialect, dsn string, timeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d, err)
	}
	if d == schema.DialectSQLite {
		// A single connection keeps every statement on the same file handle.
		db.SetMaxOpenConns(1)
	}

	pingCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s: %w", d, err)
	}
	return db, nil
}
