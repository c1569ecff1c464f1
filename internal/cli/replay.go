package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/choreo/internal/harness"
	"github.com/roach88/choreo/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID         string `json:"run_id"`
	Name          string `json:"name"`
	Events        int    `json:"events"`
	Deterministic bool   `json:"deterministic"`
	Diff          string `json:"diff,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded runs and verify determinism",
		Long: `Play recorded runs again and compare the traces.

Every run stores its definition, frame delay, scale and scripted steps.
Replay rebuilds the timeline, repeats the run on a fresh manual clock and
checks the new trace against the stored one entry by entry.

Exit codes:
  0 - All runs reproduced their trace
  1 - At least one run diverged
  2 - Command error (database not found, etc.)

Examples:
  choreo replay --db ./runs.db
  choreo replay --db ./runs.db --run 0190c6b2-...
  choreo replay --db ./runs.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	st, err := openStore(opts.Database, opts.Config.DB)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	defer st.Close()

	ids, err := runIDs(ctx, st, opts.RunID)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(ids)),
		TotalRuns:        len(ids),
		AllDeterministic: true,
	}
	for _, id := range ids {
		formatter.VerboseLog("Replaying run %s", id)
		res, err := harness.Replay(ctx, st, id)
		if errors.Is(err, store.ErrRunNotFound) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("no run %s", id), nil)
		}
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("failed to replay run %s: %v", id, err), nil)
		}

		runResult := ReplayRunResult{
			RunID:         id,
			Name:          res.Run.Name,
			Events:        len(res.Run.Trace),
			Deterministic: res.Match(),
		}
		if !res.Match() {
			runResult.Diff = res.Diff.Error()
			result.AllDeterministic = false
		}
		result.Runs = append(result.Runs, runResult)
	}

	if formatter.JSON() {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result)
}

// runIDs returns only, or every stored run when only is empty.
func runIDs(ctx context.Context, st *store.Store, only string) ([]string, error) {
	if only != "" {
		return []string{only}, nil
	}
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	return ids, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_NONDETERMINISTIC",
			Message: "replay produced a different trace",
		}
	}
	if err := formatter.Encode(response); err != nil {
		return err
	}
	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(formatter *OutputFormatter, result ReplayResult) error {
	w := formatter.Writer
	if result.TotalRuns == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}

	for _, r := range result.Runs {
		if r.Deterministic {
			fmt.Fprintf(w, "✓ %s (%s): %d event(s) reproduced\n", truncateID(r.RunID), r.Name, r.Events)
			continue
		}
		fmt.Fprintf(w, "✗ %s (%s): %s\n", truncateID(r.RunID), r.Name, r.Diff)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Replayed %d run(s)\n", result.TotalRuns)

	if !result.AllDeterministic {
		fmt.Fprintln(w, "✗ Determinism verification failed")
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	fmt.Fprintln(w, "✓ All runs deterministic")
	return nil
}
