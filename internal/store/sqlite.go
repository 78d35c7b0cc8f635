package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLiteBackend keeps each collection as one JSONB row in the collections
// table created by the migrations package.
type SQLiteBackend struct {
	db *sql.DB
}

func NewSQLiteBackend(db *sql.DB) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

func (b *SQLiteBackend) Name() string { return "sqlite" }

func (b *SQLiteBackend) Read(ctx context.Context, key string) ([]Record, bool, error) {
	var data string
	err := b.db.QueryRowContext(ctx,
		`SELECT json(data) FROM collections WHERE key = ?`, key,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	records, err := decodeArray([]byte(data))
	if err != nil {
		return nil, false, fmt.Errorf("decoding collection %q: %w", key, err)
	}
	return records, true, nil
}

func (b *SQLiteBackend) Write(ctx context.Context, key string, records []Record) error {
	data, err := encodeArray(records)
	if err != nil {
		return err
	}
	_, err = b.db.ExecContext(ctx,
		`INSERT INTO collections (key, data, updated_at)
		 VALUES (?, jsonb(?), strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, string(data),
	)
	return err
}

func (b *SQLiteBackend) Check(ctx context.Context) error {
	return b.db.PingContext(ctx)
}
