package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // pure-Go sqlite driver
)

const licensesSchema = `
CREATE TABLE IF NOT EXISTS licenses (
	email TEXT PRIMARY KEY,
	is_premium BOOLEAN DEFAULT 0,
	payment_id TEXT,
	date_created TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	expiration_date TIMESTAMP
)`

// OpenSQLite opens (creating if necessary) the local license database and
// applies the schema. The returned handle is safe for concurrent use.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database at %q: %w", path, err)
	}

	// sqlite serializes writers; a single connection avoids SQLITE_BUSY
	// under concurrent upserts.
	handle.SetMaxOpenConns(1)

	if err := handle.PingContext(ctx); err != nil {
		handle.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if _, err := handle.ExecContext(ctx, licensesSchema); err != nil {
		handle.Close()
		return nil, fmt.Errorf("failed to apply licenses schema: %w", err)
	}

	return handle, nil
}
