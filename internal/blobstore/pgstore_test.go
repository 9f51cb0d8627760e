package blobstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okarvonen/scholarscout/internal/domain"
)

func newTestPgStore(t *testing.T) (*PgStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPgStore(mock, zerolog.Nop()), mock
}

func TestPgStorePut(t *testing.T) {
	t.Run("upserts marshaled value", func(t *testing.T) {
		store, mock := newTestPgStore(t)

		mock.ExpectExec("INSERT INTO blobs").
			WithArgs("search_index", []byte(`{"searches":null}`)).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := store.Put(context.Background(), "search_index", domain.HistoryIndex{})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stores raw bytes unchanged", func(t *testing.T) {
		store, mock := newTestPgStore(t)

		raw := []byte(`{"level":3}`)
		mock.ExpectExec("INSERT INTO blobs").
			WithArgs("jufo_cache", raw).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := store.Put(context.Background(), "jufo_cache", raw)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps database errors", func(t *testing.T) {
		store, mock := newTestPgStore(t)

		mock.ExpectExec("INSERT INTO blobs").
			WithArgs("k", pgxmock.AnyArg()).
			WillReturnError(errors.New("connection refused"))

		err := store.Put(context.Background(), "k", "v")
		require.Error(t, err)
		var storageErr *domain.StorageError
		assert.ErrorAs(t, err, &storageErr)
		assert.Equal(t, "put", storageErr.Op)
	})
}

func TestPgStoreGet(t *testing.T) {
	t.Run("unmarshals stored value", func(t *testing.T) {
		store, mock := newTestPgStore(t)

		rows := pgxmock.NewRows([]string{"value"}).
			AddRow([]byte(`{"searches":[{"id":"abc","keywords":"deep learning","timestamp":"20240101120000","count":7}]}`))
		mock.ExpectQuery("SELECT value FROM blobs WHERE key = \\$1").
			WithArgs("search_index").
			WillReturnRows(rows)

		var index domain.HistoryIndex
		err := store.Get(context.Background(), "search_index", &index)
		require.NoError(t, err)
		require.Len(t, index.Searches, 1)
		assert.Equal(t, "deep learning", index.Searches[0].Keywords)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("absent key is not found", func(t *testing.T) {
		store, mock := newTestPgStore(t)

		mock.ExpectQuery("SELECT value FROM blobs WHERE key = \\$1").
			WithArgs("missing").
			WillReturnRows(pgxmock.NewRows([]string{"value"}))

		var dest map[string]any
		err := store.Get(context.Background(), "missing", &dest)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestPgStoreDelete(t *testing.T) {
	t.Run("returns true when a row was removed", func(t *testing.T) {
		store, mock := newTestPgStore(t)

		mock.ExpectExec("DELETE FROM blobs WHERE key = \\$1").
			WithArgs("searches/old_20240101120000").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		deleted, err := store.Delete(context.Background(), "searches/old_20240101120000")
		require.NoError(t, err)
		assert.True(t, deleted)
	})

	t.Run("returns false for absent key", func(t *testing.T) {
		store, mock := newTestPgStore(t)

		mock.ExpectExec("DELETE FROM blobs WHERE key = \\$1").
			WithArgs("missing").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		deleted, err := store.Delete(context.Background(), "missing")
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestPgStoreList(t *testing.T) {
	store, mock := newTestPgStore(t)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"key", "octet_length", "updated_at"}).
		AddRow("searches/a_20240101120000", int64(120), now).
		AddRow("searches/b_20240102120000", int64(340), now)
	mock.ExpectQuery("SELECT key, octet_length").
		WithArgs("searches/").
		WillReturnRows(rows)

	infos, err := store.List(context.Background(), "searches/")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "searches/a_20240101120000", infos[0].Key)
	assert.Equal(t, int64(340), infos[1].Size)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStorePing(t *testing.T) {
	store, mock := newTestPgStore(t)

	mock.ExpectQuery("SELECT 1").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

	assert.NoError(t, store.Ping(context.Background()))
}
