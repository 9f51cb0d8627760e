// Package domain contains the core entities of the article search aggregator:
// bibliographic articles, query snapshots, the search history index, and the
// project organization layer built on top of saved searches.
package domain

import "strconv"

// Sentinel values used when an upstream record is missing a field.
// Records are filled with these defaults rather than rejected, so a
// partially described article still flows through the pipeline.
const (
	// NoTitle is the placeholder title for records without one.
	NoTitle = "No title"

	// NoLink is the placeholder for records without a resolvable DOI.
	// Records carrying this value are never deduplicated against each other.
	NoLink = "No link available"

	// UnknownJournal is the placeholder container title. The ranking
	// resolver refuses to look it up.
	UnknownJournal = "Unknown"

	// YearNA is the placeholder publication year.
	YearNA = "N/A"
)

// High-quality ranking levels. The 0-3 scale belongs to the target ranking
// scheme; levels 2 and 3 count as "high quality" and the set is not
// user-configurable.
const (
	QualityLevelMin = 0
	QualityLevelMax = 3
)

// Article is a single bibliographic search hit, enriched with a journal
// quality level once the ranking resolver has run.
type Article struct {
	// Title is the article title, or NoTitle when the source omitted it.
	Title string `json:"title"`

	// Link is the canonical identifier, normally a DOI URL. It is the
	// deduplication key for merged result sets; NoLink marks records that
	// can never be deduplicated.
	Link string `json:"link"`

	// Journal is the container title, or UnknownJournal when missing.
	Journal string `json:"journal"`

	// Year is the publication year as a string, or YearNA when missing.
	Year string `json:"year"`

	// RawInfo is a preformatted display string ("author - journal, year").
	RawInfo string `json:"raw_info"`

	// Level is the journal quality level assigned by enrichment.
	// Nil means no level could be resolved (or enrichment has not run).
	Level *int `json:"level"`
}

// HasLink reports whether the article carries a resolvable canonical link.
func (a *Article) HasLink() bool {
	return a.Link != "" && a.Link != NoLink
}

// YearValue returns the publication year as an integer, or 0 when the year
// string is not numeric. Used as the secondary sort key.
func (a *Article) YearValue() int {
	y, err := strconv.Atoi(a.Year)
	if err != nil {
		return 0
	}
	return y
}

// IsHighQuality reports whether the article's resolved level is in the
// high-quality set {2, 3}.
func (a *Article) IsHighQuality() bool {
	return a.Level != nil && (*a.Level == 2 || *a.Level == 3)
}

// Snapshot is the accumulated, deduplicated, sorted result set for one
// keyword query at a point in time. Snapshots are immutable once written;
// each page fetch merges into the previous snapshot and writes a new one.
type Snapshot struct {
	// Keywords is the original query string.
	Keywords string `json:"keywords"`

	// Timestamp is the creation time in the compact 20060102150405 layout,
	// chosen so snapshot keys sort lexicographically by age.
	Timestamp string `json:"timestamp"`

	// Results is the ordered result set.
	Results []Article `json:"results"`

	// Count equals len(Results); persisted so the history index can show
	// counts without loading snapshots.
	Count int `json:"count"`
}

// HistoryEntry is a pointer from the search history index to a stored
// snapshot. The index may hold multiple entries for the same keywords;
// the newest timestamp wins when resolving "latest".
type HistoryEntry struct {
	// ID is the snapshot's blob storage key.
	ID string `json:"id"`

	Keywords  string `json:"keywords"`
	Timestamp string `json:"timestamp"`
	Count     int    `json:"count"`
}

// HistoryIndex is the persisted form of the search history, a single blob
// read-modified-written on every snapshot save. Concurrent writers can race
// and the last writer wins; the storage backend exposes no compare-and-swap.
type HistoryIndex struct {
	Searches []HistoryEntry `json:"searches"`
}
