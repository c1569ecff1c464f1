package engine

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/choreo/internal/compiler"
	"github.com/roach88/choreo/internal/ir"
)

// Group plays a set of playables according to their relations.
//
// Relations are declared through Play (and the Builder it returns),
// PlayTogether and PlaySequentially. The group compiles them into a sorted
// event timeline the first time it needs one and again whenever a relation
// or a child's total duration changes.
//
// A Group is itself a Playable, so groups nest. A nested group is pulsed by
// its parent and never registers with the scheduler.
//
// Every method must be called from the frame loop goroutine. Listener
// callbacks run synchronously inside those calls; a callback that calls back
// into the notifying group's lifecycle methods has undefined behavior.
type Group struct {
	name  string
	sched *Scheduler
	graph *compiler.Graph

	// delay is the root node's playable; it times the start delay.
	delay      *Tween
	startDelay time.Duration
	duration   time.Duration
	interp     ir.Interpolator
	timing     map[ir.Playable]bool

	listeners []ir.Listener
	tracker   *ir.ListenerFuncs

	ended   []bool
	playing []compiler.NodeID

	started             bool
	paused              bool
	reversing           bool
	selfPulse           bool
	anchored            bool
	childrenInitialized bool

	firstFrame time.Duration
	lastFrame  time.Duration
	pauseTime  time.Duration
	lastEvent  int
	seek       SeekState
}

// NewGroup creates an empty group. WithScheduler is required for Start;
// a group nested in another group runs without one.
func NewGroup(name string, opts ...Option) (*Group, error) {
	o := applyOptions(opts)
	if o.delay < 0 {
		return nil, NewStartDelayError(name, o.delay)
	}
	delay, err := NewDelay(compiler.RootName, o.delay, WithScheduler(o.sched))
	if err != nil {
		return nil, err
	}
	g := &Group{
		name:       name,
		sched:      o.sched,
		graph:      compiler.NewGraph(delay),
		delay:      delay,
		startDelay: o.delay,
		duration:   -1,
		interp:     o.interp,
		timing:     make(map[ir.Playable]bool),
		selfPulse:  true,
		firstFrame: -1,
		lastFrame:  -1,
		pauseTime:  -1,
		lastEvent:  -1,
		seek:       NewSeekState(),
	}
	g.tracker = &ir.ListenerFuncs{End: g.onChildEnd}
	return g, nil
}

// Name implements ir.Named.
func (g *Group) Name() string { return g.name }

// Builder declares relations against one playable.
type Builder struct {
	g       *Group
	current compiler.NodeID
}

// Play adds p to the group and returns a Builder relating other playables
// to it. Adding the same playable twice reuses its node. Play(nil) returns a
// Builder that ignores every call.
func (g *Group) Play(p ir.Playable) *Builder {
	if p == nil {
		return &Builder{}
	}
	g.graph.MarkDirty()
	return &Builder{g: g, current: g.graph.Node(p)}
}

func (b *Builder) ignores(p ir.Playable) bool {
	return b.g == nil || p == nil
}

// With plays p at the same time as the builder's playable.
func (b *Builder) With(p ir.Playable) *Builder {
	if !b.ignores(p) {
		b.g.graph.WithSibling(b.current, b.g.graph.Node(p))
	}
	return b
}

// Before plays p when the builder's playable ends.
func (b *Builder) Before(p ir.Playable) *Builder {
	if !b.ignores(p) {
		b.g.graph.AddChild(b.current, b.g.graph.Node(p))
	}
	return b
}

// After plays the builder's playable when p ends.
func (b *Builder) After(p ir.Playable) *Builder {
	if !b.ignores(p) {
		b.g.graph.AddParent(b.current, b.g.graph.Node(p))
	}
	return b
}

// AfterDelay plays the builder's playable d after the group starts by
// gating it on a timing-only Delay.
func (b *Builder) AfterDelay(d time.Duration) (*Builder, error) {
	if b.g == nil {
		return b, nil
	}
	delay, err := NewDelay(fmt.Sprintf("(after %s)", d), d, WithScheduler(b.g.sched))
	if err != nil {
		return nil, err
	}
	b.g.timing[delay] = true
	return b.After(delay), nil
}

// PlayTogether starts every item at the same time. Nil items are skipped.
func (g *Group) PlayTogether(items ...ir.Playable) {
	items = withoutNil(items)
	if len(items) == 0 {
		return
	}
	b := g.Play(items[0])
	for _, p := range items[1:] {
		b.With(p)
	}
}

// PlaySequentially plays the items one after another. Nil items are
// skipped.
func (g *Group) PlaySequentially(items ...ir.Playable) {
	items = withoutNil(items)
	if len(items) == 0 {
		return
	}
	if len(items) == 1 {
		g.Play(items[0])
		return
	}
	for i := 0; i < len(items)-1; i++ {
		g.Play(items[i]).Before(items[i+1])
	}
}

func withoutNil(items []ir.Playable) []ir.Playable {
	return slices.DeleteFunc(slices.Clone(items), func(p ir.Playable) bool { return p == nil })
}

// Children returns every playable in the group in insertion order,
// timing-only delays included.
func (g *Group) Children() []ir.Playable {
	return g.graph.Playables()
}

// AddListener implements ir.Observable.
func (g *Group) AddListener(l ir.Listener) {
	if !slices.Contains(g.listeners, l) {
		g.listeners = append(g.listeners, l)
	}
}

// RemoveListener implements ir.Observable.
func (g *Group) RemoveListener(l ir.Listener) {
	if i := slices.Index(g.listeners, l); i >= 0 {
		g.listeners = slices.Delete(g.listeners, i, i+1)
	}
}

// SetDuration overrides the duration of every child that accepts one.
// Timing-only delays keep their own.
func (g *Group) SetDuration(d time.Duration) error {
	if d < 0 {
		return NewDurationError(g.name, d)
	}
	g.duration = d
	g.graph.MarkDirty()
	return nil
}

// SetStartDelay changes the time between Start and the first child.
func (g *Group) SetStartDelay(d time.Duration) error {
	if d < 0 {
		return NewStartDelayError(g.name, d)
	}
	if d == g.startDelay {
		return nil
	}
	g.startDelay = d
	if err := g.delay.SetDuration(d); err != nil {
		return err
	}
	g.graph.MarkDirty()
	return nil
}

// SetInterpolator overrides every child's easing at the next start.
func (g *Group) SetInterpolator(fn ir.Interpolator) {
	g.interp = fn
}

// Duration returns the length of one run past the start delay.
func (g *Group) Duration() time.Duration {
	total := g.TotalDuration()
	if total == ir.Infinite {
		return ir.Infinite
	}
	return total - g.startDelay
}

// StartDelay implements ir.Playable.
func (g *Group) StartDelay() time.Duration {
	return g.startDelay
}

// TotalDuration returns the compiled length including the start delay, or
// ir.Infinite when any child never ends or a relation cycle exists.
func (g *Group) TotalDuration() time.Duration {
	return g.compile().TotalDuration
}

// Timeline returns the compiled timeline.
func (g *Group) Timeline() *compiler.Timeline {
	g.initAnimation()
	return g.graph.Compile()
}

// Windows returns each node's compiled window.
func (g *Group) Windows() []compiler.Window {
	g.compile()
	return g.graph.Windows()
}

// Format renders the compiled timeline as text.
func (g *Group) Format() string {
	return g.graph.Format(g.Timeline())
}

// CanReverse reports whether the group has a finite length.
func (g *Group) CanReverse() bool {
	return g.TotalDuration() != ir.Infinite
}

// ShouldPlayTogether reports whether every child starts with the group.
func (g *Group) ShouldPlayTogether() bool {
	g.compile()
	children := g.graph.RootChildren()
	return children == 0 || children == g.graph.Len()-1
}

func (g *Group) IsStarted() bool { return g.started }
func (g *Group) IsPaused() bool  { return g.paused }

// IsRunning reports whether the group is past its start delay.
func (g *Group) IsRunning() bool {
	if g.startDelay == 0 {
		return g.started
	}
	return g.lastFrame >= 0
}

// CurrentPlayTime returns the position past the start delay.
func (g *Group) CurrentPlayTime() time.Duration {
	if g.seek.Active() {
		return g.seek.PlayTime()
	}
	if g.lastFrame < 0 {
		return 0
	}
	played := unscaled(g.lastFrame-g.firstFrame, g.scale())
	if g.reversing {
		return played
	}
	return max(played-g.startDelay, 0)
}

func (g *Group) compile() *compiler.Timeline {
	g.updateDurations()
	return g.graph.Compile()
}

// initAnimation pushes group overrides down to the children and compiles.
func (g *Group) initAnimation() {
	if g.interp != nil {
		for _, p := range g.graph.Playables() {
			if s, ok := p.(ir.InterpolatorSetter); ok && !g.timing[p] {
				s.SetInterpolator(g.interp)
			}
		}
	}
	g.compile()
}

func (g *Group) updateDurations() {
	if g.duration >= 0 {
		for _, p := range g.graph.Playables() {
			if g.timing[p] {
				continue
			}
			s, ok := p.(ir.DurationSetter)
			if !ok {
				continue
			}
			if err := s.SetDuration(g.duration); err != nil {
				slog.Error("duration override failed", "group", g.name, "child", ir.NameOf(p), "error", err)
			}
		}
	}
	if g.delay.Duration() != g.startDelay {
		if err := g.delay.SetDuration(g.startDelay); err != nil {
			slog.Error("start delay resync failed", "group", g.name, "error", err)
		}
	}
}

func (g *Group) onChildEnd(p ir.Playable, _ bool) {
	if id, ok := g.graph.Lookup(p); ok {
		g.markEnded(id, true)
	}
}

func (g *Group) isEnded(id compiler.NodeID) bool {
	return int(id) < len(g.ended) && g.ended[id]
}

func (g *Group) markEnded(id compiler.NodeID, ended bool) {
	if int(id) >= len(g.ended) {
		g.ended = append(g.ended, make([]bool, int(id)+1-len(g.ended))...)
	}
	g.ended[id] = ended
}

func (g *Group) scale() float64 {
	if g.sched == nil {
		return 1
	}
	return g.sched.DurationScale()
}

func (g *Group) checkLoop() error {
	if g.sched != nil && !g.sched.OnLoop() {
		return NewLoopError(g.name)
	}
	return nil
}

// isEmptyGroup reports whether g has nothing to wait for: no start delay and
// no children other than empty groups.
func isEmptyGroup(g *Group) bool {
	if g.startDelay > 0 {
		return false
	}
	for _, p := range g.graph.Playables() {
		child, ok := p.(*Group)
		if !ok || !isEmptyGroup(child) {
			return false
		}
	}
	return true
}
