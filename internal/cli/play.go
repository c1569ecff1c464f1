package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/roach88/choreo/internal/engine"
	"github.com/roach88/choreo/internal/harness"
	"github.com/roach88/choreo/internal/host"
	"github.com/roach88/choreo/internal/ir"
	"github.com/roach88/choreo/internal/store"
	"github.com/roach88/choreo/internal/trace"
	"github.com/roach88/choreo/internal/tui"
)

// Playback modes.
const (
	ModeSimulate = "simulate"
	ModeRealtime = "realtime"
	ModeTUI      = "tui"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	FrameDelay time.Duration
	Scale      float64
	Reverse    bool
	Seek       time.Duration
	Database   string
	Realtime   bool
	TUI        bool

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// PlayResult is the outcome of one playback.
type PlayResult struct {
	Name     string                       `json:"name"`
	Mode     string                       `json:"mode"`
	RunID    string                       `json:"run_id,omitempty"`
	Frames   int                          `json:"frames"`
	PlayTime ir.Duration                  `json:"play_time"`
	Final    map[string]harness.ClipState `json:"final,omitempty"`
	Trace    []trace.Entry                `json:"trace"`
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	return newPlayCommand(&PlayOptions{RootOptions: rootOpts})
}

func newPlayCommand(opts *PlayOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play <timeline>",
		Short: "Play a timeline and print its trace",
		Long: `Play a timeline and print every start, end and cancel callback.

By default playback is simulated on a manual frame clock: it finishes
instantly and always produces the same trace, which --db records for
"choreo replay". --realtime plays on a wall-clock frame loop and --tui
shows the clips as progress bars.

Frame delay and duration scale default to the configuration
(choreo.yaml, CHOREO_FRAME_DELAY, CHOREO_DURATION_SCALE).

Examples:
  choreo play intro.yaml
  choreo play intro.yaml --reverse --frame 10ms
  choreo play intro.cue --seek 120ms --db ./runs.db
  choreo play intro.yaml --tui --scale 2`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, args[0], cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.FrameDelay, "frame", 0, "frame interval (default from config)")
	cmd.Flags().Float64Var(&opts.Scale, "scale", 1, "duration scale; 0 finishes on the first frame")
	cmd.Flags().BoolVar(&opts.Reverse, "reverse", false, "play backwards from the end")
	cmd.Flags().DurationVar(&opts.Seek, "seek", 0, "move to this play time before starting")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the simulated run in this SQLite database")
	cmd.Flags().BoolVar(&opts.Realtime, "realtime", false, "play on a real-time frame loop")
	cmd.Flags().BoolVar(&opts.TUI, "tui", false, "play in a terminal UI")
	cmd.MarkFlagsMutuallyExclusive("realtime", "tui")

	return cmd
}

func runPlay(opts *PlayOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	applyConfigDefaults(opts, cmd)
	configureLogging(opts.Verbose, opts.TUI)

	mode := opts.mode()
	if mode != ModeSimulate && opts.Database != "" {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "--db records simulated playback only", nil)
	}
	if mode == ModeTUI && opts.Seek != 0 {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "--seek is not supported with --tui", nil)
	}

	def, err := LoadDefinition(path)
	if err != nil {
		code, message := loadErrorCode(err)
		return formatter.Fail(ExitCommandError, code, message, nil)
	}
	slog.Debug("playing timeline", "name", def.Name, "mode", mode,
		"frame_delay", opts.FrameDelay, "scale", opts.Scale, "reverse", opts.Reverse)

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var result *PlayResult
	switch mode {
	case ModeRealtime:
		result, err = playRealtime(ctx, def, opts)
	case ModeTUI:
		result, err = playTUI(ctx, def, opts, cmd)
	default:
		result, err = playSimulated(ctx, def, opts)
	}
	if result == nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalid, err.Error(), nil)
	}
	result.Name = def.Name
	result.Mode = mode

	if formatter.JSON() {
		if err != nil {
			_ = formatter.Encode(CLIResponse{
				Status: "error",
				Data:   result,
				Error:  &CLIError{Code: ErrCodePlayback, Message: err.Error()},
			})
			return WrapExitError(ExitFailure, "playback failed", err)
		}
		return formatter.Success(result)
	}

	w := formatter.Writer
	if mode != ModeTUI || opts.Verbose {
		fmt.Fprint(w, trace.Format(result.Trace))
	}
	fmt.Fprintf(w, "%s: %d event(s), %d frame(s), play time %s\n",
		result.Name, len(result.Trace), result.Frames, result.PlayTime)
	if result.RunID != "" {
		fmt.Fprintf(w, "Recorded run %s\n", result.RunID)
	}
	if err != nil {
		fmt.Fprintf(w, "✗ %v\n", err)
		return WrapExitError(ExitFailure, "playback failed", err)
	}
	return nil
}

func (o *PlayOptions) mode() string {
	switch {
	case o.Realtime:
		return ModeRealtime
	case o.TUI:
		return ModeTUI
	default:
		return ModeSimulate
	}
}

// applyConfigDefaults fills every flag the user left unset from the loaded
// configuration.
func applyConfigDefaults(opts *PlayOptions, cmd *cobra.Command) {
	cfg := opts.Config
	if !cmd.Flags().Changed("frame") {
		opts.FrameDelay = cfg.FrameDelay
	}
	if !cmd.Flags().Changed("scale") {
		opts.Scale = cfg.DurationScale
	}
	if !cmd.Flags().Changed("db") {
		opts.Database = cfg.DB
	}
}

// configureLogging installs the default slog handler on stderr. A terminal
// UI owns the screen, so it only lets warnings through.
func configureLogging(verbose, quiet bool) {
	level := slog.LevelInfo
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelWarn
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// commandContext returns cmd's context, or Background when it has none.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// recipe scripts the simulated run: optional seek, start or reverse, then
// frames until nothing is scheduled.
func (o *PlayOptions) recipe() harness.Recipe {
	scale := o.Scale
	r := harness.Recipe{
		Options: harness.Options{FrameDelay: ir.Duration(o.FrameDelay), Scale: &scale},
	}
	if o.Seek != 0 {
		at := ir.Duration(o.Seek)
		r.Steps = append(r.Steps, harness.Step{Action: harness.ActionSeek, At: &at})
	}
	action := harness.ActionStart
	if o.Reverse {
		action = harness.ActionReverse
	}
	r.Steps = append(r.Steps,
		harness.Step{Action: action},
		harness.Step{UntilIdle: true},
	)
	return r
}

// playSimulated plays def on a manual clock and records it when a database
// is configured. A failing step still returns the partial result.
func playSimulated(ctx context.Context, def *ir.Definition, opts *PlayOptions) (*PlayResult, error) {
	recipe := opts.recipe()
	session, err := harness.Play(def, recipe)
	if session == nil {
		return nil, err
	}
	defer session.Close()

	result := &PlayResult{
		Frames:   session.Frames(),
		PlayTime: ir.Duration(session.PlayTime()),
		Final:    session.Final(),
		Trace:    session.Trace(),
	}
	if err != nil || opts.Database == "" {
		return result, err
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return result, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	gen := opts.RunIDs
	if gen == nil {
		gen = engine.UUIDv7Generator{}
	}
	run, err := harness.Save(ctx, st, def, recipe, result.Trace, gen)
	if err != nil {
		return result, fmt.Errorf("failed to record run: %w", err)
	}
	result.RunID = run.ID
	return result, nil
}

// playRealtime plays def on a wall-clock frame loop until the group ends or
// ctx is done, which cancels it.
func playRealtime(ctx context.Context, def *ir.Definition, opts *PlayOptions) (*PlayResult, error) {
	loop := host.NewLoop(opts.FrameDelay)
	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(context.Background()) }()
	defer func() {
		loop.Stop()
		<-loopDone
	}()

	var (
		scene *engine.Scene
		rec   *trace.Recorder
		ended = make(chan struct{})
	)
	err := loop.Call(ctx, func() error {
		sched := engine.NewScheduler(loop, engine.WithDurationScale(opts.Scale))
		var err error
		scene, err = engine.Build(def, engine.WithScheduler(sched))
		if err != nil {
			return err
		}
		rec = trace.NewRecorder(loop.FrameTime)
		rec.Watch(scene.Group)
		for _, path := range scene.Paths {
			rec.Watch(scene.Clips[path])
		}
		onEnd := sync.OnceFunc(func() { close(ended) })
		scene.Group.AddListener(&ir.ListenerFuncs{
			End: func(ir.Playable, bool) { onEnd() },
		})

		if opts.Seek != 0 {
			if err := scene.Group.SetCurrentPlayTime(opts.Seek); err != nil {
				return err
			}
		}
		if opts.Reverse {
			return scene.Group.Reverse()
		}
		return scene.Group.Start()
	})
	if err != nil {
		if rec == nil {
			return nil, err
		}
		return collect(loop, scene, rec), err
	}

	select {
	case <-ended:
	case <-ctx.Done():
		slog.Info("interrupted, cancelling playback")
		if err := loop.Call(context.Background(), scene.Group.Cancel); err != nil {
			slog.Error("cancel failed", "error", err)
		}
	}
	return collect(loop, scene, rec), nil
}

// collect snapshots a real-time playback on its loop.
func collect(loop *host.Loop, scene *engine.Scene, rec *trace.Recorder) *PlayResult {
	result := &PlayResult{Final: make(map[string]harness.ClipState)}
	_ = loop.Call(context.Background(), func() error {
		rec.Close()
		result.Trace = rec.Entries()
		result.Frames = loop.Frames()
		result.PlayTime = ir.Duration(scene.Group.CurrentPlayTime())
		for _, path := range scene.Paths {
			if tw, ok := scene.Tween(path); ok {
				result.Final[path] = harness.ClipState{Value: tw.Value(), Started: tw.IsStarted()}
			}
		}
		return nil
	})
	return result
}

// playTUI plays def in a bubbletea program on cmd's terminal.
func playTUI(ctx context.Context, def *ir.Definition, opts *PlayOptions, cmd *cobra.Command) (*PlayResult, error) {
	scale := opts.Scale
	m, err := tui.New(def, tui.Options{FrameDelay: opts.FrameDelay, Scale: &scale, Reverse: opts.Reverse})
	if err != nil {
		return nil, err
	}
	entries, err := tui.Run(m,
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	return &PlayResult{Trace: entries, Frames: m.Frames(), PlayTime: ir.Duration(m.PlayTime())}, err
}
