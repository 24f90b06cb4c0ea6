package cli

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/replica/internal/harness"
	"github.com/roach88/replica/internal/scene"
	"github.com/roach88/replica/internal/snapshot"
	"github.com/roach88/replica/internal/store"
)

// EncodeOptions holds flags for the encode command.
type EncodeOptions struct {
	*RootOptions
	Output    string
	Database  string
	SessionID string
	Label     string
	Framed    bool

	// IDs generates session ids when --session is not given.
	IDs snapshot.SessionIDGenerator
}

// EncodeResult is the outcome of encoding a scenario's remote tree.
type EncodeResult struct {
	Scenario    string `json:"scenario"`
	Roots       int    `json:"roots"`
	Framed      bool   `json:"framed"`
	Size        int    `json:"size"`
	ContentHash string `json:"content_hash"`
	Output      string `json:"output,omitempty"`
	Hex         string `json:"hex,omitempty"`
	Session     string `json:"session,omitempty"`
	Seq         int64  `json:"seq,omitempty"`
}

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EncodeOptions{RootOptions: rootOpts, IDs: snapshot.UUIDv7Generator{}}

	cmd := &cobra.Command{
		Use:   "encode <scenario.yaml>",
		Short: "Encode a scenario's authoritative tree into a snapshot",
		Long: `Build the remote tree of a scenario, register its top-level nodes and
encode them into a snapshot buffer.

The buffer is written to --output when given and printed as hex otherwise.
With --db or --session the snapshot is also archived under the next tick of
the session; a new session gets a generated UUIDv7 id.

Exit codes:
  0 - Snapshot encoded
  2 - Command error (scenario invalid, output not writable, etc.)

Examples:
  replica encode scenarios/create.yaml -o tick.snap
  replica encode scenarios/create.yaml --db replica.db --session match-7
  replica encode scenarios/create.yaml --framed --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.prepare(cmd); err != nil {
				return err
			}
			archive := cmd.Flags().Changed("db") || opts.SessionID != ""
			return runEncode(cmd.Context(), opts, args[0], archive, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the snapshot to this file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "archive the snapshot in this SQLite database")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "session id to archive under")
	cmd.Flags().StringVar(&opts.Label, "label", "", "label for a new session (default: scenario name)")
	cmd.Flags().BoolVar(&opts.Framed, "framed", false, "length-prefix attribute streams")

	return cmd
}

func runEncode(ctx context.Context, opts *EncodeOptions, path string, archive bool, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	scenario.Options.Framed = scenario.Options.Framed || opts.Config.Engine.Framed

	remote, e, err := scenario.BuildRemote(opts.Logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build remote tree", err)
	}
	buf := e.WriteState(remote)

	result := EncodeResult{
		Scenario:    scenario.Name,
		Roots:       e.RegisteredCount(),
		Framed:      e.Framed(),
		Size:        len(buf),
		ContentHash: store.ContentHash(buf),
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, buf, 0644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write snapshot", err)
		}
		result.Output = opts.Output
	} else {
		result.Hex = hex.EncodeToString(buf)
	}

	if archive {
		snap, err := archiveSnapshot(ctx, opts, scenario.Name, e, remote)
		if err != nil {
			return err
		}
		result.Session = snap.SessionID
		result.Seq = snap.Seq
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Encoded %s: %d root(s), %d bytes, framed=%t\n", result.Scenario, result.Roots, result.Size, result.Framed)
	fmt.Fprintf(w, "  Hash: %s\n", result.ContentHash)
	if result.Output != "" {
		fmt.Fprintf(w, "  Written to %s\n", result.Output)
	} else {
		fmt.Fprintf(w, "  %s\n", result.Hex)
	}
	if result.Session != "" {
		fmt.Fprintf(w, "  Archived as %s@%d\n", result.Session, result.Seq)
	}
	return nil
}

// archiveSnapshot captures the remote tree into the configured store.
func archiveSnapshot(ctx context.Context, opts *EncodeOptions, scenarioName string, e *snapshot.Engine, remote *scene.Scene) (store.Snapshot, error) {
	st, err := store.Open(opts.Config.Store.Path)
	if err != nil {
		return store.Snapshot{}, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = opts.IDs.Generate()
	}
	label := opts.Label
	if label == "" {
		label = scenarioName
	}

	rec, err := snapshot.NewRecorder(ctx, st, e, sessionID, label)
	if err != nil {
		return store.Snapshot{}, WrapExitError(ExitCommandError, "failed to open session", err)
	}
	snap, err := rec.Capture(ctx, remote)
	if err != nil {
		return store.Snapshot{}, WrapExitError(ExitCommandError, "failed to archive snapshot", err)
	}
	opts.Logger.Info("snapshot archived", "session", snap.SessionID, "seq", snap.Seq, "size", snap.Size)
	return snap, nil
}
