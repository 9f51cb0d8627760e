package httpserver

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okarvonen/scholarscout/internal/domain"
)

// listHistory handles GET /api/history.
func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.resultStore.History(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load search history")
		writeError(w, http.StatusInternalServerError, "failed to load search history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"history": history,
	})
}

// historyByID handles GET /api/history/*. Snapshot IDs contain slashes,
// so the route is a wildcard; a trailing "/download" segment switches to
// CSV export.
func (s *Server) historyByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "*")
	if trimmed, ok := strings.CutSuffix(id, "/download"); ok {
		s.downloadHistoryCSV(w, r, trimmed)
		return
	}

	results, err := s.resultStore.Results(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Search not found")
			return
		}
		s.logger.Error().Err(err).Str("id", id).Msg("failed to load search results")
		writeError(w, http.StatusInternalServerError, "failed to load search results")
		return
	}
	if len(results) == 0 {
		writeError(w, http.StatusNotFound, "Search not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"results": results,
	})
}

// deleteHistory handles DELETE /api/history/*: remove the snapshot blob
// and drop its entry from the history index.
func (s *Server) deleteHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "*")
	if err := s.resultStore.Delete(r.Context(), id); err != nil {
		s.logger.Error().Err(err).Str("id", id).Msg("failed to delete search")
		writeError(w, http.StatusInternalServerError, "Failed to delete search")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// downloadHistoryCSV streams a snapshot's results as a CSV attachment.
// Columns are the sorted union of the result fields, so snapshots written
// by older versions with different fields still export cleanly.
func (s *Server) downloadHistoryCSV(w http.ResponseWriter, r *http.Request, id string) {
	results, err := s.resultStore.Results(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Search not found")
			return
		}
		s.logger.Error().Err(err).Str("id", id).Msg("failed to load search results")
		writeError(w, http.StatusInternalServerError, "failed to load search results")
		return
	}
	if len(results) == 0 {
		writeError(w, http.StatusNotFound, "Search not found")
		return
	}

	rows := make([]map[string]interface{}, 0, len(results))
	fieldSet := map[string]struct{}{}
	for _, article := range results {
		raw, err := json.Marshal(article)
		if err != nil {
			continue
		}
		var fields map[string]interface{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			continue
		}
		for name := range fields {
			fieldSet[name] = struct{}{}
		}
		rows = append(rows, fields)
	}

	fieldNames := make([]string, 0, len(fieldSet))
	for name := range fieldSet {
		fieldNames = append(fieldNames, name)
	}
	sort.Strings(fieldNames)

	filename := path.Base(id) + "_results.csv"
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write(fieldNames)
	record := make([]string, len(fieldNames))
	for _, row := range rows {
		for i, name := range fieldNames {
			record[i] = csvCell(row[name])
		}
		_ = cw.Write(record)
	}
	cw.Flush()
}

// csvCell renders a JSON value as a CSV cell; null becomes an empty cell
// and whole numbers drop the decimal point.
func csvCell(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		if value == float64(int64(value)) {
			return fmt.Sprintf("%d", int64(value))
		}
		return fmt.Sprintf("%g", value)
	default:
		return fmt.Sprint(value)
	}
}
