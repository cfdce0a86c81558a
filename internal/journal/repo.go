package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/mockbox/internal/models"
)

// Recent limits.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Entry is one recorded change.
type Entry struct {
	Seq    int64           `json:"seq"`
	Op     string          `json:"op"`
	Type   string          `json:"type,omitempty"`
	ID     string          `json:"id,omitempty"`
	At     time.Time       `json:"at"`
	Entity json.RawMessage `json:"entity,omitempty"`
}

// Record appends c to the journal.
func (db *DB) Record(ctx context.Context, c models.Change) error {
	var body string
	if c.Entity != nil {
		b, err := json.Marshal(c.Entity)
		if err != nil {
			return fmt.Errorf("journal: encode entity: %w", err)
		}
		body = string(b)
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO changes (op, entity_type, entity_id, at, body)
		VALUES (?, ?, ?, ?, ?)
	`, string(c.Op), c.Type, c.ID, c.At.UTC().Format(time.RFC3339Nano), body)
	if err != nil {
		return fmt.Errorf("journal: insert: %w", err)
	}
	return nil
}

// Observe records c and logs a failure instead of returning it, so a DB can
// be registered as a storage service observer.
func (db *DB) Observe(c models.Change) {
	if err := db.Record(context.Background(), c); err != nil {
		slog.Warn("journal: record failed",
			slog.String("op", string(c.Op)),
			slog.String("type", c.Type),
			slog.String("id", c.ID),
			slog.String("error", err.Error()))
	}
}

// Recent returns the newest entries first, optionally restricted to one
// entity type. limit <= 0 means DefaultLimit; it is capped at MaxLimit.
func (db *DB) Recent(ctx context.Context, entityType string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT seq, op, entity_type, entity_id, at, body
		FROM changes
		WHERE (? = '' OR entity_type = ?)
		ORDER BY seq DESC
		LIMIT ?
	`, entityType, entityType, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var (
			e    Entry
			at   string
			body string
		)
		if err := rows.Scan(&e.Seq, &e.Op, &e.Type, &e.ID, &at, &body); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		if body != "" {
			e.Entity = json.RawMessage(body)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
