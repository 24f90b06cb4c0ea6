package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore creates a new temporary store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSession inserts a session with the given id.
func createTestSession(t *testing.T, s *Store, id string, createdSeq int64) {
	t.Helper()
	err := s.CreateSession(context.Background(), Session{ID: id, Label: "test " + id, CreatedSeq: createdSeq})
	if err != nil {
		t.Fatalf("CreateSession(%s) failed: %v", id, err)
	}
}
