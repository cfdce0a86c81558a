package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func tempStore(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(filepath.Join(t.TempDir(), "mocks.json"))
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempStore(t)
	content := []byte(`{"users": []}`)
	if err := s.Write(content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestReadMissingIsNotExist(t *testing.T) {
	s := tempStore(t)
	_, err := s.Read()
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

func TestNewFS_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "mocks.json")
	s, err := NewFS(path)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	if err := s.Write([]byte("{}")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file not written: %v", err)
	}
}

func TestNewFS_Directory(t *testing.T) {
	if _, err := NewFS(t.TempDir()); err == nil {
		t.Error("expected error when path is a directory")
	}
}

func TestNewFS_EmptyPath(t *testing.T) {
	if _, err := NewFS(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempStore(t)
	_ = s.Write([]byte("original"))
	if err := s.Write([]byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read()
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(s.Path()), ".mockbox-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestChecksum(t *testing.T) {
	if Checksum([]byte("a")) == Checksum([]byte("b")) {
		t.Error("different content should not share a checksum")
	}
	if Checksum([]byte("a")) != Checksum([]byte("a")) {
		t.Error("checksum should be stable")
	}
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatch_DocumentWrite(t *testing.T) {
	s := tempStore(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go func() {
		_ = Watch(ctx, s.Path(), logger, 20*time.Millisecond, func() { calls.Add(1) })
	}()
	time.Sleep(100 * time.Millisecond)

	// Unrelated file in the same directory is ignored.
	_ = os.WriteFile(filepath.Join(filepath.Dir(s.Path()), "other.json"), []byte("{}"), 0o644)
	time.Sleep(100 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatalf("unrelated file triggered %d calls", calls.Load())
	}

	_ = s.Write([]byte(`{"users":[]}`))

	eventually(t, 3*time.Second, 20*time.Millisecond, func() bool {
		return calls.Load() >= 1
	}, "document write did not trigger onChange")
}
