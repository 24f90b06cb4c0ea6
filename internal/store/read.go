package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ReadSession returns a session by id, or ErrNotFound.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, label, framed, created_seq
		FROM sessions
		WHERE id = ?
	`, id).Scan(&sess.ID, &sess.Label, &sess.Framed, &sess.CreatedSeq)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	return sess, nil
}

// ListSessions returns all sessions ordered by created_seq ASC, id ASC.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, framed, created_seq
		FROM sessions
		ORDER BY created_seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Label, &sess.Framed, &sess.CreatedSeq); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadSnapshots returns every snapshot of a session.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC.
//
// Returns an empty slice (not nil) if the session has no snapshots.
func (s *Store) ReadSnapshots(ctx context.Context, sessionID string) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, seq, content_hash, size, payload
		FROM snapshots
		WHERE session_id = ?
		ORDER BY seq ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	snaps := []Snapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snaps, nil
}

// ReadSnapshot returns the snapshot at (sessionID, seq), or ErrNotFound.
func (s *Store) ReadSnapshot(ctx context.Context, sessionID string, seq int64) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, seq, content_hash, size, payload
		FROM snapshots
		WHERE session_id = ? AND seq = ?
	`, sessionID, seq)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("snapshot %s@%d: %w", sessionID, seq, ErrNotFound)
	}
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// LastSeq returns the highest seq recorded for a session, or 0.
// Used to resume a recorder's clock.
func (s *Store) LastSeq(ctx context.Context, sessionID string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM snapshots WHERE session_id = ?
	`, sessionID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return seq, nil
}

// FindByContentHash returns all snapshots with the given content hash,
// ordered by session and seq.
func (s *Store) FindByContentHash(ctx context.Context, hash string) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, seq, content_hash, size, payload
		FROM snapshots
		WHERE content_hash = ?
		ORDER BY session_id COLLATE BINARY ASC, seq ASC, id ASC
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("query snapshots by hash: %w", err)
	}
	defer rows.Close()

	snaps := []Snapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snaps, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (Snapshot, error) {
	var snap Snapshot
	err := row.Scan(&snap.ID, &snap.SessionID, &snap.Seq, &snap.ContentHash, &snap.Size, &snap.Payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, err
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("scan snapshot: %w", err)
	}
	return snap, nil
}
