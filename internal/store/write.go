package store

import (
	"context"
	"fmt"
)

// Session is one recording of snapshots.
type Session struct {
	ID     string
	Label  string
	Framed bool
	// CreatedSeq orders sessions; it is the recorder's tick at creation.
	CreatedSeq int64
}

// Snapshot is one archived snapshot buffer.
type Snapshot struct {
	ID          int64
	SessionID   string
	Seq         int64
	ContentHash string
	Size        int
	Payload     []byte
}

// CreateSession inserts a session record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) CreateSession(ctx context.Context, sess Session) error {
	if sess.ID == "" {
		return fmt.Errorf("create session: id is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, label, framed, created_seq)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, sess.ID, sess.Label, sess.Framed, sess.CreatedSeq)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// WriteSnapshot archives payload under (sessionID, seq).
//
// Uses ON CONFLICT(session_id, seq) DO NOTHING for idempotency. If a snapshot
// already exists at that position, the stored record is returned with
// inserted=false, even if its payload differs.
//
// Note: The session must exist (foreign key constraint).
func (s *Store) WriteSnapshot(ctx context.Context, sessionID string, seq int64, payload []byte) (snap Snapshot, inserted bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("write snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if payload == nil {
		payload = []byte{} // nil binds as NULL
	}
	hash := ContentHash(payload)
	result, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (session_id, seq, content_hash, size, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`, sessionID, seq, hash, len(payload), payload)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("write snapshot: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("write snapshot: rows affected: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
		SELECT id, session_id, seq, content_hash, size, payload
		FROM snapshots
		WHERE session_id = ? AND seq = ?
	`, sessionID, seq)
	snap, err = scanSnapshot(row)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("write snapshot: select: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Snapshot{}, false, fmt.Errorf("write snapshot: commit: %w", err)
	}

	return snap, rowsAffected > 0, nil
}
