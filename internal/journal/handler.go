package journal

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

// Handler serves GET /journal?type=&limit=.
func (db *DB) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))

		entries, err := db.Recent(r.Context(), q.Get("type"), limit)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err != nil {
			slog.Error("journal query failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Internal server error"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": entries})
	}
}
