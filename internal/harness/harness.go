package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/choreo/internal/engine"
	"github.com/roach88/choreo/internal/ir"
	"github.com/roach88/choreo/internal/store"
)

// scenarioRunID is the ID every scenario run is stored under. Each scenario
// gets its own store, so IDs never collide and golden traces stay stable.
const scenarioRunID = "scenario"

// Harness is the test execution engine.
type Harness struct {
	store  *store.Store
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. A step
// that misbehaves (an unexpected error, or an expected one that did not
// happen) fails the result without stopping the evaluation: the trace up to
// that step is still recorded and asserted on.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load the timeline and build a session on a manual frame clock
// 3. Execute the steps
// 4. Store the trace and read it back
// 5. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	def, err := scenario.LoadDefinition()
	if err != nil {
		return nil, err
	}
	s, err := NewSession(def, scenario.Options)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}
	defer s.Close()

	result := NewResult()
	if err := s.Run(scenario.Steps); err != nil {
		result.AddError(err.Error())
	}
	h.logger.Info("scenario played",
		"scenario", scenario.Name,
		"frames", s.Frames(),
		"events", len(s.Trace()),
	)

	run, err := Save(ctx, h.store, def, scenario.Recipe, s.Trace(), engine.NewFixedGenerator(scenarioRunID))
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	stored, err := h.store.ReadTrace(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}

	result.RunID = run.ID
	result.Trace = stored
	result.Final = s.Final()
	result.PlayTime = ir.Duration(s.PlayTime())

	state := State{Trace: stored, Final: result.Final, PlayTime: s.PlayTime()}
	for _, msg := range EvaluateAssertions(state, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}
