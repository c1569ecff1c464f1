package harness

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/choreo/internal/engine"
	"github.com/roach88/choreo/internal/ir"
	"github.com/roach88/choreo/internal/testutil"
	"github.com/roach88/choreo/internal/trace"
)

// DefaultFrameDelay is the frame interval when Options leaves it unset.
const DefaultFrameDelay = 16 * time.Millisecond

// maxIdleFrames bounds an until_idle step; an unbounded timeline never idles.
const maxIdleFrames = 100_000

// Options are the playback settings of a run.
type Options struct {
	FrameDelay ir.Duration `yaml:"frame_delay,omitempty" json:"frame_delay"`
	// Scale multiplies every duration. Nil means 1; 0 finishes everything
	// on the first frame.
	Scale *float64 `yaml:"scale,omitempty" json:"scale,omitempty"`
}

func (o Options) frameDelay() time.Duration {
	if o.FrameDelay <= 0 {
		return DefaultFrameDelay
	}
	return o.FrameDelay.Std()
}

func (o Options) scale() float64 {
	if o.Scale == nil {
		return 1
	}
	return *o.Scale
}

// Recipe is everything besides the definition needed to reproduce a run.
type Recipe struct {
	Options `yaml:",inline"`
	Steps   []Step `yaml:"steps" json:"steps"`
}

// Validate checks the options and every step.
func (r *Recipe) Validate() error {
	if r.FrameDelay.Std() < 0 {
		return fmt.Errorf("frame_delay must be finite")
	}
	if r.Scale != nil && *r.Scale < 0 {
		return fmt.Errorf("scale must be non-negative")
	}
	for i := range r.Steps {
		if err := validateStep(i, &r.Steps[i]); err != nil {
			return err
		}
	}
	return nil
}

// Session is one simulated playback: a scene built from a definition,
// driven by a manual frame clock and recorded.
type Session struct {
	clock    *testutil.FrameClock
	sched    *engine.Scheduler
	scene    *engine.Scene
	recorder *trace.Recorder
}

// NewSession builds def into a scene on a fresh frame clock and starts
// recording the group and every clip.
func NewSession(def *ir.Definition, opts Options) (*Session, error) {
	clock := testutil.NewFrameClock(opts.frameDelay())
	sched := engine.NewScheduler(clock, engine.WithDurationScale(opts.scale()))
	scene, err := engine.Build(def, engine.WithScheduler(sched))
	if err != nil {
		return nil, err
	}

	rec := trace.NewRecorder(clock.FrameTime)
	rec.Watch(scene.Group)
	for _, path := range scene.Paths {
		rec.Watch(scene.Clips[path])
	}
	return &Session{clock: clock, sched: sched, scene: scene, recorder: rec}, nil
}

// Play builds a session and runs the recipe's steps on it.
func Play(def *ir.Definition, recipe Recipe) (*Session, error) {
	if err := recipe.Validate(); err != nil {
		return nil, err
	}
	s, err := NewSession(def, recipe.Options)
	if err != nil {
		return nil, err
	}
	if err := s.Run(recipe.Steps); err != nil {
		return s, err
	}
	return s, nil
}

// Scene returns the played scene.
func (s *Session) Scene() *engine.Scene { return s.scene }

// Scheduler returns the session's frame scheduler.
func (s *Session) Scheduler() *engine.Scheduler { return s.sched }

// Trace returns everything recorded so far.
func (s *Session) Trace() []trace.Entry { return s.recorder.Entries() }

// Frames returns how many frames the session produced.
func (s *Session) Frames() int { return s.clock.Frames() }

// Run applies steps in order and stops at the first failing one.
func (s *Session) Run(steps []Step) error {
	for i, st := range steps {
		if err := s.Apply(st); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

// Apply performs one step.
func (s *Session) Apply(st Step) error {
	switch {
	case st.Action != "":
		return s.act(st)
	case st.Advance != nil:
		s.clock.Step(st.Advance.Std())
	case st.Frames > 0:
		for i := 0; i < st.Frames; i++ {
			s.clock.Advance()
		}
	case st.UntilIdle:
		s.clock.RunUntilIdle(maxIdleFrames)
		if s.clock.Pending() {
			return fmt.Errorf("still playing after %d frames", maxIdleFrames)
		}
	}
	return nil
}

type reverser interface{ Reverse() error }

type seeker interface {
	SetCurrentPlayTime(t time.Duration) error
}

func (s *Session) act(st Step) error {
	p, err := s.target(st.Target)
	if err != nil {
		return err
	}
	name := ir.NameOf(p)
	detail := st.Action
	if st.At != nil {
		detail += " " + st.At.String()
	}
	s.recorder.Note(name, detail)
	slog.Debug("scenario action", "target", name, "action", detail, "frame", s.clock.FrameTime())

	switch st.Action {
	case ActionStart:
		err = p.Start()
	case ActionReverse:
		r, ok := p.(reverser)
		if !ok {
			return fmt.Errorf("%s cannot be reversed", name)
		}
		err = r.Reverse()
	case ActionEnd:
		err = p.End()
	case ActionCancel:
		err = p.Cancel()
	case ActionPause:
		err = p.Pause()
	case ActionResume:
		err = p.Resume()
	case ActionSeek:
		sk, ok := p.(seeker)
		if !ok {
			return fmt.Errorf("%s cannot seek", name)
		}
		err = sk.SetCurrentPlayTime(st.At.Std())
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}
	return checkActionError(name, st, err)
}

// checkActionError matches an action's error against ExpectError.
func checkActionError(name string, st Step, err error) error {
	if st.ExpectError == "" {
		if err != nil {
			return fmt.Errorf("%s %s: %w", name, st.Action, err)
		}
		return nil
	}
	var pe *engine.PlaybackError
	if !errors.As(err, &pe) {
		return fmt.Errorf("%s %s: expected %s, got %v", name, st.Action, st.ExpectError, err)
	}
	if string(pe.Code) != st.ExpectError {
		return fmt.Errorf("%s %s: expected %s, got %s", name, st.Action, st.ExpectError, pe.Code)
	}
	return nil
}

func (s *Session) target(path string) (ir.Playable, error) {
	if path == "" {
		return s.scene.Group, nil
	}
	p, ok := s.scene.Clips[ir.NormalizeName(path)]
	if !ok {
		return nil, fmt.Errorf("unknown clip %q", path)
	}
	return p, nil
}

// Final returns every leaf clip's value and started flag, keyed by path.
func (s *Session) Final() map[string]ClipState {
	out := make(map[string]ClipState, len(s.scene.Paths))
	for _, path := range s.scene.Paths {
		if tw, ok := s.scene.Tween(path); ok {
			out[path] = ClipState{Value: tw.Value(), Started: tw.IsStarted()}
		}
	}
	return out
}

// PlayTime returns the group's current position.
func (s *Session) PlayTime() time.Duration {
	return s.scene.Group.CurrentPlayTime()
}

// Close stops recording.
func (s *Session) Close() {
	s.recorder.Close()
}
