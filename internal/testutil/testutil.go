// Package testutil provides shared test helpers for building services over
// temporary documents and journals.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/starford/mockbox/internal/entityservice"
	"github.com/starford/mockbox/internal/journal"
	"github.com/starford/mockbox/internal/storage"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestStore creates a storage provider for a document in a temp directory.
func TestStore(t *testing.T) *storage.FS {
	t.Helper()
	store, err := storage.NewFS(filepath.Join(t.TempDir(), "mocks.json"))
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// TestService creates and initializes a service over a fresh temp document.
func TestService(t *testing.T, opts ...entityservice.Option) *entityservice.Service {
	t.Helper()
	opts = append([]entityservice.Option{entityservice.WithLogger(DiscardLogger())}, opts...)
	svc := entityservice.New(TestStore(t), opts...)
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return svc
}

// TestJournal opens a journal in a temp directory that is closed on cleanup.
func TestJournal(t *testing.T) *journal.DB {
	t.Helper()
	db, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
