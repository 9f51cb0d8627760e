package blobstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/okarvonen/scholarscout/internal/domain"
)

// DBTX is the subset of pgx pool behavior the store needs. Both
// *pgxpool.Pool and pgxmock pools satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// PgStore persists blobs in a single PostgreSQL table:
//
//	blobs(key TEXT PRIMARY KEY, value JSONB NOT NULL, updated_at TIMESTAMPTZ NOT NULL)
//
// Put is an upsert, so writes are atomic per key; there is still no
// cross-key transaction or compare-and-swap in the Store contract.
type PgStore struct {
	db     DBTX
	logger zerolog.Logger
}

var _ Store = (*PgStore)(nil)

// NewPgStore creates a PostgreSQL-backed store on an existing pool.
func NewPgStore(db DBTX, logger zerolog.Logger) *PgStore {
	return &PgStore{
		db:     db,
		logger: logger.With().Str("component", "pgstore").Logger(),
	}
}

// Put implements Store.
func (s *PgStore) Put(ctx context.Context, key string, value any) error {
	data, err := marshalValue(value)
	if err != nil {
		return domain.NewStorageError("put", key, err)
	}

	const query = `
		INSERT INTO blobs (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	if _, err := s.db.Exec(ctx, query, key, data); err != nil {
		return domain.NewStorageError("put", key, err)
	}

	s.logger.Debug().Str("key", key).Int("bytes", len(data)).Msg("blob written")
	return nil
}

// Get implements Store.
func (s *PgStore) Get(ctx context.Context, key string, dest any) error {
	data, err := s.GetRaw(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return domain.NewStorageError("get", key, err)
	}
	return nil
}

// GetRaw implements Store.
func (s *PgStore) GetRaw(ctx context.Context, key string) ([]byte, error) {
	const query = `SELECT value FROM blobs WHERE key = $1`

	var data []byte
	if err := s.db.QueryRow(ctx, query, key).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("blob", key)
		}
		return nil, domain.NewStorageError("get", key, err)
	}
	return data, nil
}

// Delete implements Store.
func (s *PgStore) Delete(ctx context.Context, key string) (bool, error) {
	const query = `DELETE FROM blobs WHERE key = $1`

	tag, err := s.db.Exec(ctx, query, key)
	if err != nil {
		return false, domain.NewStorageError("delete", key, err)
	}
	return tag.RowsAffected() > 0, nil
}

// List implements Store.
func (s *PgStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	const query = `
		SELECT key, octet_length(value::text), updated_at
		FROM blobs
		WHERE key LIKE $1 || '%'
		ORDER BY key`

	rows, err := s.db.Query(ctx, query, prefix)
	if err != nil {
		return nil, domain.NewStorageError("list", prefix, err)
	}
	defer rows.Close()

	infos := make([]ObjectInfo, 0)
	for rows.Next() {
		var info ObjectInfo
		if err := rows.Scan(&info.Key, &info.Size, &info.ModifiedAt); err != nil {
			return nil, domain.NewStorageError("list", prefix, err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("list", prefix, err)
	}
	return infos, nil
}

// Ping implements Store.
func (s *PgStore) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return domain.NewStorageError("ping", "", err)
	}
	return nil
}
