package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Schema for the alert registry. Kept minimal: the core is stateless, this
// table only serves alert dedupe and after-the-fact review.
const schema = `
CREATE TABLE IF NOT EXISTS alerts (
	id          BIGSERIAL PRIMARY KEY,
	address     TEXT        NOT NULL,
	score       DOUBLE PRECISION NOT NULL,
	conviction  TEXT        NOT NULL,
	alerted_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS alerts_address_time_idx ON alerts (address, alerted_at DESC);
`

// AlertRegistry is the postgres-backed store of prior alerts.
type AlertRegistry struct {
	db *sqlx.DB
}

// Open connects to postgres and ensures the schema exists.
func Open(dsn string) (*AlertRegistry, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect alert registry: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate alert registry: %w", err)
	}
	return &AlertRegistry{db: db}, nil
}

// NewWithDB wraps an existing connection; tests use this with sqlmock.
func NewWithDB(db *sqlx.DB) *AlertRegistry {
	return &AlertRegistry{db: db}
}

// WasAlerted reports whether the address was alerted within the window.
func (r *AlertRegistry) WasAlerted(ctx context.Context, address string, within time.Duration) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(1) FROM alerts WHERE address = $1 AND alerted_at > $2`,
		address, time.Now().Add(-within))
	if err != nil {
		return false, fmt.Errorf("query alert registry: %w", err)
	}
	return count > 0, nil
}

// RecordAlert appends an alert row.
func (r *AlertRegistry) RecordAlert(ctx context.Context, address string, score float64, conviction string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO alerts (address, score, conviction) VALUES ($1, $2, $3)`,
		address, score, conviction)
	if err != nil {
		return fmt.Errorf("record alert: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *AlertRegistry) Close() error {
	return r.db.Close()
}
