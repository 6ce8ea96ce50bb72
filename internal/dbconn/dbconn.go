// Package dbconn opens database handles for the configured driver.
package dbconn

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql adapter for pgx
	_ "modernc.org/sqlite"             // cgo-free sqlite driver

	"github.com/mdecl/querycache/internal/config"
)

// Open connects to the database named by the resolved settings and verifies
// the connection with a short ping.
func Open(ctx context.Context, settings config.Settings) (*sql.DB, error) {
	var db *sql.DB
	var err error
	switch settings.Driver {
	case config.DriverSQLite:
		db, err = sql.Open("sqlite", settings.DSN)
	case config.DriverPostgres:
		db, err = sql.Open("pgx", settings.DSN)
	default:
		return nil, fmt.Errorf("dbconn: unsupported driver %q", settings.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("dbconn: open %s: %w", settings.Driver, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("dbconn: ping %s: %w", settings.Driver, err)
	}
	return db, nil
}
