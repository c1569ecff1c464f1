package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/choreo/internal/compiler"
	"github.com/roach88/choreo/internal/engine"
	"github.com/roach88/choreo/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult is a compiled top-level timeline.
type CompilationResult struct {
	Name          string       `json:"name"`
	Hash          string       `json:"hash"`
	TotalDuration ir.Duration  `json:"total_duration"`
	Windows       []WindowView `json:"windows"`
	Events        []EventView  `json:"events"`
	Cycles        [][]string   `json:"cycles,omitempty"`

	// text is the compiler's own rendering, used for text output.
	text string
}

// WindowView is a node's scheduled window, with Infinite spelled out.
type WindowView struct {
	Name  string      `json:"name"`
	Start ir.Duration `json:"start"`
	End   ir.Duration `json:"end"`
	After string      `json:"after,omitempty"`
}

// EventView is one timeline event by node name.
type EventView struct {
	Node string       `json:"node"`
	Kind ir.EventKind `json:"kind"`
	Time ir.Duration  `json:"time"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <timeline>",
		Short: "Compile a timeline to its sorted event list",
		Long: `Compile a YAML, JSON or CUE timeline definition.

Prints every node's scheduled window followed by the sorted start, delay
and end events the playback engine walks. Clips on a dependency cycle are
pinned to "infinite" and listed as cycles.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the compiled timeline as JSON to this file")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	def, err := LoadDefinition(path)
	if err != nil {
		code, message := loadErrorCode(err)
		return formatter.Fail(ExitCommandError, code, message, nil)
	}
	formatter.VerboseLog("Loaded timeline %q from %s", def.Name, path)

	result, err := compileDefinition(def)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalid, err.Error(), compiler.Validate(def))
	}

	if opts.Output != "" {
		if err := writeCompiled(result, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
		formatter.VerboseLog("Wrote compiled timeline to %s", opts.Output)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprint(formatter.Writer, result.text)
	return nil
}

// compileDefinition builds def and snapshots its compiled timeline.
func compileDefinition(def *ir.Definition) (*CompilationResult, error) {
	scene, err := engine.Build(def)
	if err != nil {
		return nil, err
	}
	hash, err := ir.DefinitionHash(def)
	if err != nil {
		return nil, err
	}

	g := scene.Group
	timeline := g.Timeline()
	windows := g.Windows()

	result := &CompilationResult{
		Name:          g.Name(),
		Hash:          hash,
		TotalDuration: ir.Duration(timeline.TotalDuration),
		Windows:       make([]WindowView, len(windows)),
		Events:        make([]EventView, len(timeline.Events)),
		text:          g.Format(),
	}
	for i, w := range windows {
		view := WindowView{Name: w.Name, Start: ir.Duration(w.Start), End: ir.Duration(w.End)}
		if w.LatestParent != compiler.NoParent {
			view.After = windows[w.LatestParent].Name
		}
		result.Windows[i] = view
	}
	for i, e := range timeline.Events {
		result.Events[i] = EventView{Node: windows[e.Node].Name, Kind: e.Kind, Time: ir.Duration(e.Time)}
	}
	for _, cycle := range timeline.Cycles {
		names := make([]string, len(cycle))
		for i, id := range cycle {
			names[i] = windows[id].Name
		}
		result.Cycles = append(result.Cycles, names)
	}
	return result, nil
}

// writeCompiled writes the compiled timeline as indented JSON.
func writeCompiled(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling timeline: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
