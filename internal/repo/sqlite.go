package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SQLite stores values in the workspace database's kv table.
type SQLite struct {
	DB  *sql.DB
	Now func() time.Time
}

func (r SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.DB.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (r SQLite) Set(ctx context.Context, key string, value []byte) error {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	_, err := r.DB.ExecContext(ctx, `INSERT INTO kv(key,value,updated_at) VALUES (?,?,?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, now().UTC().Format(time.RFC3339))
	return err
}

func (r SQLite) Delete(ctx context.Context, key string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM kv WHERE key=?`, key)
	return err
}

func (r SQLite) Close() error {
	return r.DB.Close()
}

// Keys lists stored keys, newest write first.
func (r SQLite) Keys(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT key FROM kv ORDER BY updated_at DESC, key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
