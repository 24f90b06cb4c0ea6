package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/replica/internal/scene"
	"github.com/roach88/replica/internal/snapshot"
	"github.com/roach88/replica/internal/store"
	"github.com/roach88/replica/internal/variant"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database  string
	SessionID string // optional - specific session only
	SchemaDir string

	SkipPruneOnDesync bool
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	Session       string             `json:"session"`
	Label         string             `json:"label"`
	Framed        bool               `json:"framed"`
	Snapshots     int                `json:"snapshots"`
	Stats         snapshot.ReadStats `json:"stats"`
	SceneHash     string             `json:"scene_hash,omitempty"`
	Deterministic bool               `json:"deterministic"`
	Error         string             `json:"error,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions         []ReplaySessionResult `json:"sessions"`
	TotalSessions    int                   `json:"total_sessions"`
	AllDeterministic bool                  `json:"all_deterministic"`
	Failed           int                   `json:"failed"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay archived sessions and verify determinism",
		Long: `Replay every archived snapshot of a session into a fresh client scene,
twice, and verify that both runs produce the same read counters and the
same final scene.

Each payload is checked against its stored content hash before decoding.
The engine uses the framing mode the session was recorded with and always
registers new top-level entities, so roots the authority dropped during the
session are removed, whatever engine.auto_register says.

Exit codes:
  0 - All sessions replayed deterministically
  1 - Replay failed or differences detected
  2 - Command error (database not found, etc.)

Examples:
  replica replay --db ./replica.db
  replica replay --db ./replica.db --session match-7
  replica replay --db ./replica.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.prepare(cmd); err != nil {
				return err
			}
			return runReplay(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "replay specific session only")
	cmd.Flags().StringVar(&opts.SchemaDir, "schema", "", "directory of CUE component schemas")
	cmd.Flags().BoolVar(&opts.SkipPruneOnDesync, "skip-prune-on-desync", false, "keep roots when an unframed snapshot desynchronizes")

	return cmd
}

// openExisting opens the configured database, refusing to create a new one.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func runReplay(ctx context.Context, opts *ReplayOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	st, err := openExisting(opts.Config.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	reg, err := opts.registry()
	if err != nil {
		return err
	}

	var sessions []store.Session
	if opts.SessionID != "" {
		sess, err := st.ReadSession(ctx, opts.SessionID)
		if errors.Is(err, store.ErrNotFound) {
			return WrapExitError(ExitCommandError, "session not found", err)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read session", err)
		}
		sessions = []store.Session{sess}
	} else {
		sessions, err = st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
	}

	result := ReplayResult{
		Sessions:         make([]ReplaySessionResult, 0, len(sessions)),
		TotalSessions:    len(sessions),
		AllDeterministic: true,
	}

	for _, sess := range sessions {
		formatter.VerboseLog("Replaying session %s", sess.ID)
		sr := replayAndVerifySession(ctx, opts, st, reg, sess)
		if !sr.Deterministic {
			result.AllDeterministic = false
		}
		if sr.Error != "" {
			result.Failed++
		}
		result.Sessions = append(result.Sessions, sr)
	}

	if formatter.IsJSON() {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// replayRun is one pass over a session's snapshots.
type replayRun struct {
	steps     []snapshot.ReplayStep
	sceneHash string
}

// replayOnce applies the session to a fresh scene.
func replayOnce(ctx context.Context, opts *ReplayOptions, st *store.Store, reg *scene.Registry, sess store.Session) (replayRun, error) {
	s := scene.New(reg)
	e := opts.engine(snapshot.WithFraming(sess.Framed), snapshot.WithAutoRegister(true))
	steps, err := snapshot.Replay(ctx, st, sess.ID, e, s)
	if err != nil {
		return replayRun{steps: steps}, err
	}
	doc, err := variant.MarshalCanonical(scene.Dump(s))
	if err != nil {
		return replayRun{steps: steps}, fmt.Errorf("dump scene: %w", err)
	}
	return replayRun{steps: steps, sceneHash: store.ContentHash(doc)}, nil
}

// replayAndVerifySession replays a session twice and compares the runs.
func replayAndVerifySession(ctx context.Context, opts *ReplayOptions, st *store.Store, reg *scene.Registry, sess store.Session) ReplaySessionResult {
	sr := ReplaySessionResult{
		Session: sess.ID,
		Label:   sess.Label,
		Framed:  sess.Framed,
	}

	first, err := replayOnce(ctx, opts, st, reg, sess)
	sr.Snapshots = len(first.steps)
	for _, step := range first.steps {
		sr.Stats.Add(step.Stats)
	}
	if err != nil {
		sr.Error = err.Error()
		opts.Logger.Warn("replay failed", "session", sess.ID, "error", err)
		return sr
	}

	second, err := replayOnce(ctx, opts, st, reg, sess)
	if err != nil {
		sr.Error = fmt.Sprintf("second replay failed: %v", err)
		return sr
	}

	sr.SceneHash = first.sceneHash
	sr.Deterministic = slices.Equal(first.steps, second.steps) && first.sceneHash == second.sceneHash
	if !sr.Deterministic {
		opts.Logger.Warn("non-deterministic replay", "session", sess.ID,
			"first", first.sceneHash, "second", second.sceneHash)
	}
	return sr
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	switch {
	case result.Failed > 0:
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeReplayFailed,
			Message: fmt.Sprintf("%d session(s) failed to replay", result.Failed),
		}
	case !result.AllDeterministic:
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeDeterminism,
			Message: "determinism verification failed",
		}
	}

	if err := formatter.Respond(response); err != nil {
		return err
	}
	if response.Error != nil {
		return NewExitError(ExitFailure, response.Error.Message)
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if result.TotalSessions == 0 {
		fmt.Fprintln(w, "No sessions found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d session(s)\n", result.TotalSessions)
	fmt.Fprintln(w)

	for _, sess := range result.Sessions {
		status := "✓"
		if !sess.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Session: %s", status, sess.Session)
		if sess.Label != "" {
			fmt.Fprintf(w, " (%s)", sess.Label)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  Snapshots: %d, framed=%t\n", sess.Snapshots, sess.Framed)

		if verbose {
			printStats(w, sess.Stats)
			if sess.SceneHash != "" {
				fmt.Fprintf(w, "  Scene: %s\n", sess.SceneHash)
			}
		}

		if sess.Error != "" {
			fmt.Fprintf(w, "  Error: %s\n", sess.Error)
		} else if !sess.Deterministic {
			fmt.Fprintln(w, "  Warning: Non-deterministic replay detected!")
		}
		fmt.Fprintln(w)
	}

	if result.Failed > 0 {
		fmt.Fprintf(w, "✗ %d session(s) failed to replay\n", result.Failed)
		return NewExitError(ExitFailure, "replay failed")
	}
	if !result.AllDeterministic {
		fmt.Fprintln(w, "✗ Determinism verification failed")
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	fmt.Fprintln(w, "✓ All sessions verified deterministic")
	return nil
}
