package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/replica/internal/scene"
	"github.com/roach88/replica/internal/store"
)

// Recorder archives the snapshots an engine produces into a store session.
type Recorder struct {
	engine  *Engine
	store   *store.Store
	clock   TickSource
	session store.Session
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithClock sets the tick source. By default the recorder resumes after the
// session's last archived tick.
func WithClock(c TickSource) RecorderOption {
	return func(r *Recorder) { r.clock = c }
}

// NewRecorder opens or creates the session and returns a recorder for it.
// An existing session must have been recorded with the same framing mode.
func NewRecorder(ctx context.Context, st *store.Store, e *Engine, sessionID, label string, opts ...RecorderOption) (*Recorder, error) {
	r := &Recorder{engine: e, store: st}
	for _, opt := range opts {
		opt(r)
	}

	sess, err := st.ReadSession(ctx, sessionID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		createdSeq := int64(0)
		if r.clock != nil {
			createdSeq = r.clock.Current()
		}
		sess = store.Session{ID: sessionID, Label: label, Framed: e.Framed(), CreatedSeq: createdSeq}
		if err := st.CreateSession(ctx, sess); err != nil {
			return nil, fmt.Errorf("new recorder: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("new recorder: %w", err)
	case sess.Framed != e.Framed():
		return nil, fmt.Errorf("new recorder: session %s framed=%t, engine framed=%t", sessionID, sess.Framed, e.Framed())
	}
	r.session = sess

	if r.clock == nil {
		last, err := st.LastSeq(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("new recorder: %w", err)
		}
		r.clock = NewClockAt(last)
	}
	return r, nil
}

// Session returns the session being recorded.
func (r *Recorder) Session() store.Session { return r.session }

// Capture encodes the engine's roots in s and archives the buffer under the
// next tick.
func (r *Recorder) Capture(ctx context.Context, s *scene.Scene) (store.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return store.Snapshot{}, err
	}
	buf := r.engine.WriteState(s)
	seq := r.clock.Next()
	snap, inserted, err := r.store.WriteSnapshot(ctx, r.session.ID, seq, buf)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("capture: %w", err)
	}
	if !inserted {
		return snap, fmt.Errorf("capture: tick %d already recorded in session %s", seq, r.session.ID)
	}
	r.engine.logger.Debug("snapshot captured",
		"session", r.session.ID,
		"seq", seq,
		"size", snap.Size,
		"hash", snap.ContentHash,
	)
	return snap, nil
}

// ReplayStep is the outcome of applying one archived snapshot.
type ReplayStep struct {
	Seq         int64     `json:"seq"`
	ContentHash string    `json:"content_hash"`
	Stats       ReadStats `json:"stats"`
}

// Replay applies every snapshot of a session to s in tick order. The engine
// must use the framing mode the session was recorded with. Replay stops at
// the first snapshot whose payload does not match its content hash or fails
// to decode; the steps applied so far are returned with the error.
func Replay(ctx context.Context, st *store.Store, sessionID string, e *Engine, s *scene.Scene) ([]ReplayStep, error) {
	sess, err := st.ReadSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	if sess.Framed != e.Framed() {
		return nil, fmt.Errorf("replay: session %s framed=%t, engine framed=%t", sessionID, sess.Framed, e.Framed())
	}

	snaps, err := st.ReadSnapshots(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	steps := make([]ReplayStep, 0, len(snaps))
	for _, snap := range snaps {
		if err := ctx.Err(); err != nil {
			return steps, err
		}
		if got := store.ContentHash(snap.Payload); got != snap.ContentHash {
			return steps, fmt.Errorf("replay %s@%d: content hash mismatch (stored %s, computed %s)",
				sessionID, snap.Seq, snap.ContentHash, got)
		}
		stats, err := e.ReadState(snap.Payload, s)
		if err != nil {
			return steps, fmt.Errorf("replay %s@%d: %w", sessionID, snap.Seq, err)
		}
		steps = append(steps, ReplayStep{Seq: snap.Seq, ContentHash: snap.ContentHash, Stats: stats})
	}
	return steps, nil
}
