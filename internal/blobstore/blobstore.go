// Package blobstore provides key-value blob persistence for search snapshots,
// indexes, and the ranking cache.
//
// A Store holds JSON documents addressed by slash-separated keys
// ("searches/deep_learning_20240101Z", "search_index", "projects/<id>").
// Values round-trip losslessly through encoding/json. Two backends are
// provided: a local directory of JSON files for development, and a single
// JSONB table on PostgreSQL for deployments.
//
// Example usage:
//
//	store := blobstore.NewFileStore("local_storage", logger)
//	if err := store.Put(ctx, "search_index", index); err != nil { ... }
//	var index domain.HistoryIndex
//	err := store.Get(ctx, "search_index", &index)
package blobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okarvonen/scholarscout/internal/domain"
)

// ObjectInfo describes one stored blob, as returned by List.
type ObjectInfo struct {
	// Key is the blob's full key.
	Key string `json:"key"`

	// Size is the stored size in bytes.
	Size int64 `json:"size"`

	// ModifiedAt is the last write time.
	ModifiedAt time.Time `json:"modified_at"`
}

// Store is the blob persistence contract consumed by the result store and
// the ranking cache. Implementations must be safe for concurrent use.
//
// Store offers no compare-and-swap: read-modify-write sequences on shared
// blobs (the history index, the ranking cache) race under concurrency and
// the last writer wins.
type Store interface {
	// Put JSON-marshals value and stores it under key, replacing any
	// previous value.
	Put(ctx context.Context, key string, value any) error

	// Get loads the blob under key and JSON-unmarshals it into dest.
	// Returns an error wrapping domain.ErrNotFound when the key is absent.
	Get(ctx context.Context, key string, dest any) error

	// GetRaw loads the raw stored bytes under key.
	// Returns an error wrapping domain.ErrNotFound when the key is absent.
	GetRaw(ctx context.Context, key string) ([]byte, error)

	// Delete removes the blob under key. Returns false when the key was
	// absent; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) (bool, error)

	// List returns metadata for all blobs whose key starts with prefix,
	// ordered by key.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}

// marshalValue converts a value to its stored JSON form. Raw []byte and
// string values holding valid JSON are stored as-is so GetRaw round-trips.
func marshalValue(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		if json.Valid(v) {
			return v, nil
		}
		return json.Marshal(string(v))
	case json.RawMessage:
		return v, nil
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("marshal blob value: %w", err)
		}
		return data, nil
	}
}

// MemStore is an in-memory Store for tests and ephemeral runs.
type MemStore struct {
	mu    sync.RWMutex
	blobs map[string]memBlob
}

type memBlob struct {
	data       []byte
	modifiedAt time.Time
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[string]memBlob)}
}

var _ Store = (*MemStore)(nil)

// Put implements Store.
func (s *MemStore) Put(_ context.Context, key string, value any) error {
	data, err := marshalValue(value)
	if err != nil {
		return domain.NewStorageError("put", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = memBlob{data: data, modifiedAt: time.Now().UTC()}
	return nil
}

// Get implements Store.
func (s *MemStore) Get(ctx context.Context, key string, dest any) error {
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
func (s *MemStore) GetRaw(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.blobs[key]
	if !ok {
		return nil, domain.NewNotFoundError("blob", key)
	}
	out := make([]byte, len(blob.data))
	copy(out, blob.data)
	return out, nil
}

// Delete implements Store.
func (s *MemStore) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[key]; !ok {
		return false, nil
	}
	delete(s.blobs, key)
	return true, nil
}

// List implements Store.
func (s *MemStore) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]ObjectInfo, 0)
	for key, blob := range s.blobs {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, ObjectInfo{
				Key:        key,
				Size:       int64(len(blob.data)),
				ModifiedAt: blob.modifiedAt,
			})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// Ping implements Store.
func (s *MemStore) Ping(_ context.Context) error {
	return nil
}
