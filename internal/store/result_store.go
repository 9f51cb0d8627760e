// Package store persists query snapshots, the search history index, and
// the project organization layer on top of the blob store.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/okarvonen/scholarscout/internal/blobstore"
	"github.com/okarvonen/scholarscout/internal/domain"
)

const (
	// IndexKey is the blob key of the search history index.
	IndexKey = "search_index"

	// SnapshotPrefix is the key prefix for query snapshots.
	SnapshotPrefix = "searches/"

	// timestampLayout is sortable lexicographically, which the history
	// ordering and latest-snapshot resolution rely on.
	timestampLayout = "20060102150405"
)

// ResultStore owns query snapshots and the history index. Snapshots are
// immutable once written; every save creates a new snapshot and appends an
// index entry, so the index entry with the newest timestamp for a given
// keywords value points at the current snapshot.
//
// The index is a single shared blob updated read-modify-write with no
// locking; concurrent savers can race and the last writer wins.
type ResultStore struct {
	blobs  blobstore.Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewResultStore creates a result store.
func NewResultStore(blobs blobstore.Store, logger zerolog.Logger) *ResultStore {
	return &ResultStore{
		blobs:  blobs,
		logger: logger.With().Str("component", "result_store").Logger(),
		now:    time.Now,
	}
}

// SnapshotKey derives the storage key for a snapshot of the given keywords
// at the given timestamp.
func SnapshotKey(keywords, timestamp string) string {
	return SnapshotPrefix + strings.ReplaceAll(keywords, " ", "_") + "_" + timestamp
}

// SaveResults writes a new snapshot for keywords and appends it to the
// history index. It returns the snapshot key.
func (s *ResultStore) SaveResults(ctx context.Context, keywords string, results []domain.Article) (string, error) {
	timestamp := s.now().UTC().Format(timestampLayout)
	key := SnapshotKey(keywords, timestamp)

	snapshot := domain.Snapshot{
		Keywords:  keywords,
		Timestamp: timestamp,
		Results:   results,
		Count:     len(results),
	}

	if err := s.blobs.Put(ctx, key, snapshot); err != nil {
		return "", fmt.Errorf("saving snapshot: %w", err)
	}

	entry := domain.HistoryEntry{
		ID:        key,
		Keywords:  keywords,
		Timestamp: timestamp,
		Count:     len(results),
	}
	if err := s.appendIndexEntry(ctx, entry); err != nil {
		return "", fmt.Errorf("updating history index: %w", err)
	}

	s.logger.Debug().Str("key", key).Int("count", len(results)).Msg("snapshot saved")
	return key, nil
}

// History returns all index entries, newest first. An absent index is an
// empty history, not an error.
func (s *ResultStore) History(ctx context.Context) ([]domain.HistoryEntry, error) {
	index, err := s.loadIndex(ctx)
	if err != nil {
		return nil, err
	}

	entries := index.Searches
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})
	return entries, nil
}

// Results loads the article list of one snapshot by its key.
func (s *ResultStore) Results(ctx context.Context, id string) ([]domain.Article, error) {
	var snapshot domain.Snapshot
	if err := s.blobs.Get(ctx, id, &snapshot); err != nil {
		return nil, err
	}
	return snapshot.Results, nil
}

// LatestResults returns the articles of the newest snapshot for keywords.
// The boolean reports whether any snapshot exists for those keywords.
func (s *ResultStore) LatestResults(ctx context.Context, keywords string) ([]domain.Article, bool, error) {
	index, err := s.loadIndex(ctx)
	if err != nil {
		return nil, false, err
	}

	var latest *domain.HistoryEntry
	for i := range index.Searches {
		entry := &index.Searches[i]
		if entry.Keywords != keywords {
			continue
		}
		if latest == nil || entry.Timestamp > latest.Timestamp {
			latest = entry
		}
	}
	if latest == nil {
		return nil, false, nil
	}

	results, err := s.Results(ctx, latest.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Index entry points at a deleted snapshot; treat as absent.
			return nil, false, nil
		}
		return nil, false, err
	}
	return results, true, nil
}

// Delete removes a snapshot and its index entries.
func (s *ResultStore) Delete(ctx context.Context, id string) error {
	if _, err := s.blobs.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}

	index, err := s.loadIndex(ctx)
	if err != nil {
		return err
	}

	kept := index.Searches[:0]
	for _, entry := range index.Searches {
		if entry.ID != id {
			kept = append(kept, entry)
		}
	}
	index.Searches = kept

	if err := s.blobs.Put(ctx, IndexKey, index); err != nil {
		return fmt.Errorf("updating history index: %w", err)
	}
	return nil
}

func (s *ResultStore) appendIndexEntry(ctx context.Context, entry domain.HistoryEntry) error {
	index, err := s.loadIndex(ctx)
	if err != nil {
		return err
	}
	index.Searches = append(index.Searches, entry)
	return s.blobs.Put(ctx, IndexKey, index)
}

func (s *ResultStore) loadIndex(ctx context.Context) (domain.HistoryIndex, error) {
	var index domain.HistoryIndex
	if err := s.blobs.Get(ctx, IndexKey, &index); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.HistoryIndex{Searches: []domain.HistoryEntry{}}, nil
		}
		return domain.HistoryIndex{}, fmt.Errorf("loading history index: %w", err)
	}
	if index.Searches == nil {
		index.Searches = []domain.HistoryEntry{}
	}
	return index, nil
}
