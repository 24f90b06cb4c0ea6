package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/replica/internal/scene"
	"github.com/roach88/replica/internal/snapshot"
	"github.com/roach88/replica/internal/store"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Database  string
	SessionID string
	Seq       int64
	Hash      string
	SchemaDir string
}

// SessionSummary describes one archived session.
type SessionSummary struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Framed    bool   `json:"framed"`
	Snapshots int    `json:"snapshots"`
	LastSeq   int64  `json:"last_seq"`
}

// SnapshotSummary describes one archived snapshot without its payload.
type SnapshotSummary struct {
	Session     string `json:"session"`
	Seq         int64  `json:"seq"`
	ContentHash string `json:"content_hash"`
	Size        int    `json:"size"`
}

// SnapshotDetail is a snapshot decoded into an empty scene.
type SnapshotDetail struct {
	SnapshotSummary
	Stats snapshot.ReadStats `json:"stats"`
	Scene map[string]any     `json:"scene"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Browse archived sessions and snapshots",
		Long: `Browse the snapshot archive.

Without flags, lists every session with its snapshot count. With --session,
lists the snapshots of that session in tick order. With --session and --seq,
decodes that snapshot into an empty scene and shows the result. With --hash,
lists every snapshot whose payload has that content hash.

Exit codes:
  0 - Success
  2 - Command error (database, session or snapshot not found)

Examples:
  replica inspect --db ./replica.db
  replica inspect --db ./replica.db --session match-7
  replica inspect --db ./replica.db --session match-7 --seq 3 --format json
  replica inspect --db ./replica.db --hash 9f2c...`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.prepare(cmd); err != nil {
				return err
			}
			if cmd.Flags().Changed("seq") && opts.SessionID == "" {
				return NewExitError(ExitCommandError, "--seq requires --session")
			}
			return runInspect(cmd.Context(), opts, cmd.Flags().Changed("seq"), cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "session to list")
	cmd.Flags().Int64Var(&opts.Seq, "seq", 0, "tick of the snapshot to decode")
	cmd.Flags().StringVar(&opts.Hash, "hash", "", "find snapshots by content hash")
	cmd.Flags().StringVar(&opts.SchemaDir, "schema", "", "directory of CUE component schemas")

	return cmd
}

func runInspect(ctx context.Context, opts *InspectOptions, decode bool, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openExisting(opts.Config.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	switch {
	case opts.Hash != "":
		return inspectHash(ctx, opts, st, cmd)
	case decode:
		return inspectSnapshot(ctx, opts, st, cmd)
	case opts.SessionID != "":
		return inspectSession(ctx, opts, st, cmd)
	default:
		return inspectSessions(ctx, opts, st, cmd)
	}
}

func summarize(snaps []store.Snapshot) []SnapshotSummary {
	out := make([]SnapshotSummary, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, SnapshotSummary{
			Session:     s.SessionID,
			Seq:         s.Seq,
			ContentHash: s.ContentHash,
			Size:        s.Size,
		})
	}
	return out
}

func inspectSessions(ctx context.Context, opts *InspectOptions, st *store.Store, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	sessions, err := st.ListSessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		snaps, err := st.ReadSnapshots(ctx, sess.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read snapshots", err)
		}
		last, err := st.LastSeq(ctx, sess.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read last tick", err)
		}
		summaries = append(summaries, SessionSummary{
			ID:        sess.ID,
			Label:     sess.Label,
			Framed:    sess.Framed,
			Snapshots: len(snaps),
			LastSeq:   last,
		})
	}

	if formatter.IsJSON() {
		return formatter.Success(map[string]any{"sessions": summaries})
	}

	w := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No sessions found in database.")
		return nil
	}
	fmt.Fprintf(w, "Sessions: %d\n\n", len(summaries))
	for _, s := range summaries {
		fmt.Fprintf(w, "  %s  %-20s framed=%-5t snapshots=%d last=%d\n", s.ID, s.Label, s.Framed, s.Snapshots, s.LastSeq)
	}
	return nil
}

func readSessionOrFail(ctx context.Context, st *store.Store, id string) (store.Session, error) {
	sess, err := st.ReadSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.Session{}, WrapExitError(ExitCommandError, "session not found", err)
	}
	if err != nil {
		return store.Session{}, WrapExitError(ExitCommandError, "failed to read session", err)
	}
	return sess, nil
}

func inspectSession(ctx context.Context, opts *InspectOptions, st *store.Store, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	sess, err := readSessionOrFail(ctx, st, opts.SessionID)
	if err != nil {
		return err
	}
	snaps, err := st.ReadSnapshots(ctx, sess.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read snapshots", err)
	}
	summaries := summarize(snaps)

	if formatter.IsJSON() {
		return formatter.Success(map[string]any{
			"session":   sess.ID,
			"label":     sess.Label,
			"framed":    sess.Framed,
			"snapshots": summaries,
		})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Session: %s (%s) framed=%t\n", sess.ID, sess.Label, sess.Framed)
	fmt.Fprintf(w, "Snapshots: %d\n\n", len(summaries))
	for _, s := range summaries {
		fmt.Fprintf(w, "  [%d] %s %d bytes\n", s.Seq, s.ContentHash, s.Size)
	}
	return nil
}

func inspectSnapshot(ctx context.Context, opts *InspectOptions, st *store.Store, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	sess, err := readSessionOrFail(ctx, st, opts.SessionID)
	if err != nil {
		return err
	}
	snap, err := st.ReadSnapshot(ctx, sess.ID, opts.Seq)
	if errors.Is(err, store.ErrNotFound) {
		return WrapExitError(ExitCommandError, "snapshot not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read snapshot", err)
	}

	reg, err := opts.registry()
	if err != nil {
		return err
	}
	s := scene.New(reg)
	stats, err := opts.engine(snapshot.WithFraming(sess.Framed)).ReadState(snap.Payload, s)
	if err != nil {
		if outErr := formatter.Error(ErrCodeDecode, err.Error(), map[string]any{"session": sess.ID, "seq": snap.Seq}); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitFailure, fmt.Sprintf("decode %s@%d", sess.ID, snap.Seq), err)
	}

	detail := SnapshotDetail{
		SnapshotSummary: summarize([]store.Snapshot{snap})[0],
		Stats:           stats,
		Scene:           scene.Dump(s),
	}
	if formatter.IsJSON() {
		return formatter.Success(detail)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Snapshot %s@%d (%d bytes)\n", sess.ID, snap.Seq, snap.Size)
	fmt.Fprintf(w, "  Hash: %s\n", snap.ContentHash)
	printStats(w, stats)
	for _, n := range s.Root().Children() {
		printNode(w, n, 1)
	}
	return nil
}

func inspectHash(ctx context.Context, opts *InspectOptions, st *store.Store, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	snaps, err := st.FindByContentHash(ctx, opts.Hash)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to search snapshots", err)
	}
	summaries := summarize(snaps)

	if formatter.IsJSON() {
		return formatter.Success(map[string]any{"hash": opts.Hash, "snapshots": summaries})
	}

	w := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintf(w, "No snapshots with hash %s.\n", opts.Hash)
		return nil
	}
	for _, s := range summaries {
		fmt.Fprintf(w, "  %s@%d %d bytes\n", s.Session, s.Seq, s.Size)
	}
	return nil
}
