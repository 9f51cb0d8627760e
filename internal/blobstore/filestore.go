package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/okarvonen/scholarscout/internal/domain"
)

// FileStore persists blobs as JSON files in a local directory. Slashes in
// keys are flattened to underscores, so "searches/a_b" lives in the file
// "searches_a_b.json". Intended for development and single-node runs.
type FileStore struct {
	root   string
	logger zerolog.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a file-backed store rooted at dir. The directory is
// created on first use if missing.
func NewFileStore(dir string, logger zerolog.Logger) *FileStore {
	return &FileStore{
		root:   dir,
		logger: logger.With().Str("component", "filestore").Logger(),
	}
}

// path maps a blob key to its file path.
func (s *FileStore) path(key string) string {
	name := strings.ReplaceAll(key, "/", "_") + ".json"
	return filepath.Join(s.root, name)
}

// keyFromName reverses the flattening for keys that contained slashes.
// Flattening is lossy for keys that legitimately contain underscores, so
// List reads each file's recorded key when available and only falls back
// to name reversal for raw blobs.
func (s *FileStore) ensureRoot() error {
	return os.MkdirAll(s.root, 0o755)
}

// Put implements Store.
func (s *FileStore) Put(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ensureRoot(); err != nil {
		return domain.NewStorageError("put", key, err)
	}

	data, err := marshalValue(value)
	if err != nil {
		return domain.NewStorageError("put", key, err)
	}

	// Record the original key alongside the payload so List can report
	// exact keys despite the flattened file names.
	envelope, err := json.Marshal(fileEnvelope{Key: key, Value: data})
	if err != nil {
		return domain.NewStorageError("put", key, err)
	}

	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, envelope, 0o644); err != nil {
		return domain.NewStorageError("put", key, err)
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		return domain.NewStorageError("put", key, err)
	}

	s.logger.Debug().Str("key", key).Int("bytes", len(data)).Msg("blob written")
	return nil
}

// fileEnvelope wraps a stored value with its original key.
type fileEnvelope struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Get implements Store.
func (s *FileStore) Get(ctx context.Context, key string, dest any) error {
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
func (s *FileStore) GetRaw(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewNotFoundError("blob", key)
		}
		return nil, domain.NewStorageError("get", key, err)
	}

	var envelope fileEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Key == "" {
		// Pre-envelope file written by hand; serve it as-is.
		return raw, nil
	}
	return envelope.Value, nil
}

// Delete implements Store.
func (s *FileStore) Delete(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	err := os.Remove(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, domain.NewStorageError("delete", key, err)
	}
	return true, nil
}

// List implements Store.
func (s *FileStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []ObjectInfo{}, nil
		}
		return nil, domain.NewStorageError("list", prefix, err)
	}

	infos := make([]ObjectInfo, 0)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(s.root, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn().Err(err).Str("file", entry.Name()).Msg("skipping unreadable blob file")
			continue
		}

		key := strings.TrimSuffix(entry.Name(), ".json")
		size := int64(len(raw))
		var envelope fileEnvelope
		if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Key != "" {
			key = envelope.Key
			size = int64(len(envelope.Value))
		}

		if !strings.HasPrefix(key, prefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, ObjectInfo{
			Key:        key,
			Size:       size,
			ModifiedAt: info.ModTime().UTC(),
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// Ping implements Store.
func (s *FileStore) Ping(_ context.Context) error {
	if err := s.ensureRoot(); err != nil {
		return fmt.Errorf("blob root unavailable: %w", err)
	}
	return nil
}
