package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/choreo/internal/ir"
	"github.com/roach88/choreo/internal/store"
	"github.com/roach88/choreo/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Timeline string // optional - only runs of this definition
	Delete   bool
}

// RunList is the output of trace without --run.
type RunList struct {
	Runs []store.RunSummary `json:"runs"`
}

// TraceResult is one stored run.
type TraceResult struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	DefinitionHash string        `json:"definition_hash"`
	EngineVersion  string        `json:"engine_version"`
	Trace          []trace.Entry `json:"trace"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "List recorded runs or show one run's trace",
		Long: `Inspect runs recorded with "choreo play --db".

Without --run, lists every run with its event count. --timeline narrows
the list to runs of that definition (matched by content hash). With --run,
prints the run's trace; add --delete to remove it instead.

Examples:
  choreo trace --db ./runs.db
  choreo trace --db ./runs.db --timeline intro.yaml
  choreo trace --db ./runs.db --run 0190c6b2-... --format json
  choreo trace --db ./runs.db --run 0190c6b2-... --delete`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run to show")
	cmd.Flags().StringVar(&opts.Timeline, "timeline", "", "only list runs of this timeline file")
	cmd.Flags().BoolVar(&opts.Delete, "delete", false, "delete the run given by --run")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	if opts.Delete && opts.RunID == "" {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "--delete requires --run", nil)
	}
	st, err := openStore(opts.Database, opts.Config.DB)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	defer st.Close()

	switch {
	case opts.Delete:
		if err := st.DeleteRun(ctx, opts.RunID); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		if formatter.JSON() {
			return formatter.Success(map[string]string{"deleted": opts.RunID})
		}
		fmt.Fprintf(formatter.Writer, "Deleted run %s\n", opts.RunID)
		return nil

	case opts.RunID != "":
		return showRun(ctx, st, opts.RunID, formatter)

	default:
		return listRuns(ctx, st, opts.Timeline, formatter)
	}
}

// openStore opens path, falling back to the configured database.
func openStore(path, fallback string) (*store.Store, error) {
	if path == "" {
		path = fallback
	}
	if path == "" {
		return nil, errors.New("no database: pass --db or set CHOREO_DB")
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return st, nil
}

func showRun(ctx context.Context, st *store.Store, id string, formatter *OutputFormatter) error {
	run, err := st.ReadRun(ctx, id)
	if errors.Is(err, store.ErrRunNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("no run %s", id), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	result := TraceResult{
		ID:             run.ID,
		Name:           run.Name,
		DefinitionHash: run.DefinitionHash,
		EngineVersion:  run.EngineVersion,
		Trace:          run.Trace,
	}
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s (%s)\n", result.ID, result.Name)
	if formatter.Verbose {
		fmt.Fprintf(w, "Definition: %s\n", result.DefinitionHash)
		fmt.Fprintf(w, "Engine: %s\n", result.EngineVersion)
	}
	fmt.Fprintln(w)
	if len(result.Trace) == 0 {
		fmt.Fprintln(w, "  (no events)")
		return nil
	}
	fmt.Fprint(w, trace.Format(result.Trace))
	return nil
}

func listRuns(ctx context.Context, st *store.Store, timeline string, formatter *OutputFormatter) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	if timeline != "" {
		def, err := LoadDefinition(timeline)
		if err != nil {
			code, message := loadErrorCode(err)
			return formatter.Fail(ExitCommandError, code, message, nil)
		}
		hash, err := ir.DefinitionHash(def)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
		}
		ids, err := st.RunsForDefinition(ctx, hash)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		runs = slices.DeleteFunc(runs, func(r store.RunSummary) bool {
			return !slices.Contains(ids, r.ID)
		})
	}

	if formatter.JSON() {
		return formatter.Success(RunList{Runs: runs})
	}

	w := formatter.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %-20s %4d event(s)  %s\n", r.ID, r.Name, r.Events, truncateID(r.DefinitionHash))
	}
	return nil
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
