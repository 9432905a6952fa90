package datastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// PostgresStore はPostgreSQLのdatastore_entriesテーブルを使用したStore実装。
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore はPostgresStoreを生成する。
// スキーマはdatabase.RunMigrationsで作成済みであることを前提とする。
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Set はpathにvalueをJSONで保存する。
func (s *PostgresStore) Set(ctx context.Context, path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", path, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO datastore_entries (path, value, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (path) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		path, data,
	)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

// Get はpathの値をdstにデコードする。見つからない場合はfalseを返す。
func (s *PostgresStore) Get(ctx context.Context, path string, dst any) (bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM datastore_entries WHERE path = $1`,
		path,
	).Scan(&data)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", path, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to decode value of %s: %w", path, err)
	}
	return true, nil
}

// List はprefix直下の子キーと値を返す。
func (s *PostgresStore) List(ctx context.Context, prefix string) (map[string]json.RawMessage, error) {
	p := strings.TrimSuffix(prefix, "/") + "/"

	rows, err := s.db.QueryContext(ctx,
		`SELECT path, value FROM datastore_entries
		 WHERE starts_with(path, $1) AND position('/' in substr(path, length($1) + 1)) = 0`,
		p,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	defer rows.Close()

	result := make(map[string]json.RawMessage)
	for rows.Next() {
		var path string
		var data []byte
		if err := rows.Scan(&path, &data); err != nil {
			return nil, fmt.Errorf("failed to scan entry under %s: %w", prefix, err)
		}
		if name, ok := childName(p, path); ok {
			result[name] = json.RawMessage(data)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries under %s: %w", prefix, err)
	}

	return result, nil
}

// Ping はDB接続を確認する。
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close はDB接続を閉じる。
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// compile-time interface check
var _ Store = (*PostgresStore)(nil)
