// Package tui plays a timeline in the terminal.
//
// Bubbletea tick messages are the frames: each tick advances a manual frame
// clock by the wall time since the previous tick, so the engine sees the
// same frame sequence a real-time host would produce. Leaf clips render as
// progress bars.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/choreo/internal/engine"
	"github.com/roach88/choreo/internal/ir"
	"github.com/roach88/choreo/internal/testutil"
	"github.com/roach88/choreo/internal/trace"
)

const (
	defaultWidth = 40
	// traceLines is how many of the latest trace entries the view shows.
	traceLines = 6
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle = lipgloss.NewStyle().Width(16)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// Options configure a terminal playback.
type Options struct {
	FrameDelay time.Duration
	// Scale overrides the scheduler's duration scale when set.
	Scale   *float64
	Reverse bool
}

// frameMsg is one tick of the program's frame timer.
type frameMsg time.Time

// Model is the bubbletea model of one playback.
type Model struct {
	scene    *engine.Scene
	clock    *testutil.FrameClock
	recorder *trace.Recorder
	bars     map[string]progress.Model
	leaves   []string

	delay  time.Duration
	last   time.Time
	paused bool
	done   bool
	err    error
}

// New builds def and starts it. Nothing moves until the program delivers
// its first frame.
func New(def *ir.Definition, opts Options) (*Model, error) {
	if opts.FrameDelay <= 0 {
		opts.FrameDelay = 16 * time.Millisecond
	}
	clock := testutil.NewFrameClock(opts.FrameDelay)
	var schedOpts []engine.SchedulerOption
	if opts.Scale != nil {
		schedOpts = append(schedOpts, engine.WithDurationScale(*opts.Scale))
	}
	sched := engine.NewScheduler(clock, schedOpts...)
	scene, err := engine.Build(def, engine.WithScheduler(sched))
	if err != nil {
		return nil, err
	}

	m := &Model{
		scene:    scene,
		clock:    clock,
		recorder: trace.NewRecorder(clock.FrameTime),
		bars:     make(map[string]progress.Model),
		delay:    opts.FrameDelay,
	}
	m.recorder.Watch(scene.Group)
	for _, path := range scene.Paths {
		m.recorder.Watch(scene.Clips[path])
		if _, ok := scene.Tween(path); ok {
			bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
			bar.Width = defaultWidth
			m.bars[path] = bar
			m.leaves = append(m.leaves, path)
		}
	}

	if opts.Reverse {
		err = scene.Group.Reverse()
	} else {
		err = scene.Group.Start()
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.tick()
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.delay, func(t time.Time) tea.Msg { return frameMsg(t) })
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.scene.Group.IsStarted() {
				m.err = m.scene.Group.Cancel()
			}
			m.done = true
			return m, tea.Quit
		case " ", "p":
			m.togglePause()
		}
		return m, nil

	case tea.WindowSizeMsg:
		width := min(max(msg.Width-labelStyle.GetWidth()-4, 10), 80)
		for path, bar := range m.bars {
			bar.Width = width
			m.bars[path] = bar
		}
		return m, nil

	case frameMsg:
		return m, m.frame(time.Time(msg))
	}
	return m, nil
}

// frame advances the clock by the wall time since the previous frame.
func (m *Model) frame(now time.Time) tea.Cmd {
	d := m.delay
	if !m.last.IsZero() {
		d = now.Sub(m.last)
	}
	m.last = now
	m.clock.Step(d)

	if !m.paused && !m.clock.Pending() {
		m.done = true
		return tea.Quit
	}
	return m.tick()
}

func (m *Model) togglePause() {
	g := m.scene.Group
	if !g.IsStarted() {
		return
	}
	if m.paused {
		m.err = g.Resume()
	} else {
		m.err = g.Pause()
	}
	if m.err == nil {
		m.paused = !m.paused
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	g := m.scene.Group
	status := "playing"
	switch {
	case m.done:
		status = doneStyle.Render("done")
	case m.paused:
		status = "paused"
	}
	fmt.Fprintf(&b, "%s  %s  %s\n\n",
		titleStyle.Render(g.Name()),
		dimStyle.Render(g.CurrentPlayTime().Round(time.Millisecond).String()),
		status,
	)

	for _, path := range m.leaves {
		tw, _ := m.scene.Tween(path)
		fmt.Fprintf(&b, "%s %s %3.0f%%\n",
			labelStyle.Render(path),
			m.bars[path].ViewAs(min(max(tw.Value(), 0), 1)),
			tw.Value()*100,
		)
	}

	entries := m.recorder.Entries()
	if n := len(entries); n > traceLines {
		entries = entries[n-traceLines:]
	}
	b.WriteByte('\n')
	for _, e := range entries {
		b.WriteString(dimStyle.Render(e.String()))
		b.WriteByte('\n')
	}
	if m.err != nil {
		fmt.Fprintf(&b, "\nerror: %v\n", m.err)
	}
	b.WriteString(dimStyle.Render("\nspace pause/resume • q quit"))
	b.WriteByte('\n')
	return b.String()
}

// Done reports whether playback finished or was quit.
func (m *Model) Done() bool { return m.done }

// Trace returns everything recorded during playback.
func (m *Model) Trace() []trace.Entry { return m.recorder.Entries() }

// Frames returns how many frames were played.
func (m *Model) Frames() int { return m.clock.Frames() }

// PlayTime returns the group's current position.
func (m *Model) PlayTime() time.Duration { return m.scene.Group.CurrentPlayTime() }

// Run plays m in a bubbletea program and returns the recorded trace, which
// is partial when the program was killed.
func Run(m *Model, opts ...tea.ProgramOption) ([]trace.Entry, error) {
	_, err := tea.NewProgram(m, opts...).Run()
	m.recorder.Close()
	if err != nil {
		return m.Trace(), err
	}
	return m.Trace(), m.err
}
