package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/choreo/internal/ir"
	"github.com/roach88/choreo/internal/testutil"
)

// lifecycleLog records listener callbacks as "name event".
type lifecycleLog struct {
	entries []string
}

func (l *lifecycleLog) listener() *ir.ListenerFuncs {
	return &ir.ListenerFuncs{
		Start: func(p ir.Playable, reversing bool) {
			l.add(p, "start", reversing)
		},
		End: func(p ir.Playable, reversing bool) {
			l.add(p, "end", reversing)
		},
		Cancel: func(p ir.Playable) {
			l.entries = append(l.entries, ir.NameOf(p)+" cancel")
		},
	}
}

func (l *lifecycleLog) add(p ir.Playable, event string, reversing bool) {
	entry := ir.NameOf(p) + " " + event
	if reversing {
		entry += " reverse"
	}
	l.entries = append(l.entries, entry)
}

func (l *lifecycleLog) watch(items ...ir.Observable) {
	ln := l.listener()
	for _, o := range items {
		o.AddListener(ln)
	}
}

func newTestTween(t *testing.T, name string, d time.Duration, opts ...Option) (*Tween, *testutil.FrameClock) {
	t.Helper()
	clock := testutil.NewFrameClock(10 * time.Millisecond)
	sched := NewScheduler(clock)
	tw, err := NewTween(name, d, append([]Option{WithScheduler(sched)}, opts...)...)
	require.NoError(t, err)
	return tw, clock
}

func TestTween_RunsOverDuration(t *testing.T) {
	tw, clock := newTestTween(t, "fade", 100*time.Millisecond)
	var log lifecycleLog
	log.watch(tw)

	require.NoError(t, tw.Start())
	assert.Equal(t, []string{"fade start"}, log.entries)
	assert.True(t, tw.IsStarted())
	assert.Equal(t, 0.0, tw.Value())

	clock.Step(10 * time.Millisecond) // anchors the start
	assert.Equal(t, 0.0, tw.Value())

	clock.Step(50 * time.Millisecond)
	assert.InDelta(t, 0.5, tw.Value(), 1e-9)

	clock.Step(50 * time.Millisecond)
	assert.Equal(t, 1.0, tw.Value())
	assert.False(t, tw.IsStarted())
	assert.Equal(t, []string{"fade start", "fade end"}, log.entries)
	assert.False(t, clock.Pending())
}

func TestTween_StartDelay(t *testing.T) {
	tw, clock := newTestTween(t, "fade", 100*time.Millisecond, WithStartDelay(30*time.Millisecond))
	var log lifecycleLog
	log.watch(tw)

	require.NoError(t, tw.Start())
	assert.Empty(t, log.entries, "start listeners wait for the delay")

	clock.Step(10 * time.Millisecond)
	assert.False(t, tw.IsRunning())

	clock.Step(30 * time.Millisecond)
	assert.True(t, tw.IsRunning())
	assert.Equal(t, []string{"fade start"}, log.entries)

	clock.Step(50 * time.Millisecond)
	assert.InDelta(t, 0.5, tw.Value(), 1e-9)
	assert.Equal(t, 130*time.Millisecond, tw.TotalDuration())
}

func TestTween_Reverse(t *testing.T) {
	tw, clock := newTestTween(t, "fade", 100*time.Millisecond)
	var log lifecycleLog
	log.watch(tw)

	require.NoError(t, tw.Reverse())
	assert.Equal(t, 1.0, tw.Value())

	clock.Step(10 * time.Millisecond)
	clock.Step(25 * time.Millisecond)
	assert.InDelta(t, 0.75, tw.Value(), 1e-9)

	clock.Step(75 * time.Millisecond)
	assert.Equal(t, 0.0, tw.Value())
	assert.Equal(t, []string{"fade start reverse", "fade end reverse"}, log.entries)
}

func TestTween_ReverseInfiniteRejected(t *testing.T) {
	tw, _ := newTestTween(t, "spin", ir.Infinite)
	err := tw.Reverse()
	assert.True(t, IsReverseError(err))
	assert.False(t, tw.IsStarted())
}

func TestTween_EndWithoutStart(t *testing.T) {
	tw, _ := newTestTween(t, "fade", 100*time.Millisecond)
	var log lifecycleLog
	log.watch(tw)

	require.NoError(t, tw.End())
	assert.Equal(t, []string{"fade start", "fade end"}, log.entries)
	assert.Equal(t, 1.0, tw.Value())
}

func TestTween_Cancel(t *testing.T) {
	tw, clock := newTestTween(t, "fade", 100*time.Millisecond)
	var log lifecycleLog
	log.watch(tw)

	require.NoError(t, tw.Start())
	clock.Step(10 * time.Millisecond)
	clock.Step(50 * time.Millisecond)
	require.NoError(t, tw.Cancel())

	assert.Equal(t, []string{"fade start", "fade cancel", "fade end"}, log.entries)
	assert.InDelta(t, 0.5, tw.Value(), 1e-9, "cancel leaves the value in place")
	clock.Advance()
	assert.False(t, clock.Pending())
	assert.InDelta(t, 0.5, tw.Value(), 1e-9)

	// A second cancel is a no-op.
	require.NoError(t, tw.Cancel())
	assert.Len(t, log.entries, 3)
}

func TestTween_PauseResume(t *testing.T) {
	tw, clock := newTestTween(t, "fade", 100*time.Millisecond)

	require.NoError(t, tw.Start())
	clock.Step(10 * time.Millisecond)
	clock.Step(20 * time.Millisecond)
	assert.InDelta(t, 0.2, tw.Value(), 1e-9)

	require.NoError(t, tw.Pause())
	assert.True(t, tw.IsPaused())
	clock.Step(20 * time.Millisecond) // the paused frame
	assert.False(t, clock.Pending())

	clock.Step(100 * time.Millisecond)
	require.NoError(t, tw.Resume())
	assert.True(t, clock.Pending())

	clock.Step(30 * time.Millisecond)
	assert.InDelta(t, 0.4, tw.Value(), 1e-9)
}

func TestTween_PulsedByParent(t *testing.T) {
	tw, err := NewTween("fade", 100*time.Millisecond, WithStartDelay(20*time.Millisecond))
	require.NoError(t, err)

	tw.StartWithoutPulsing(false)
	assert.False(t, tw.PulseFrame(0))
	assert.False(t, tw.PulseFrame(20*time.Millisecond))
	assert.Equal(t, 0.0, tw.Value())
	assert.False(t, tw.PulseFrame(70*time.Millisecond))
	assert.InDelta(t, 0.5, tw.Value(), 1e-9)
	assert.True(t, tw.PulseFrame(120*time.Millisecond))
	assert.Equal(t, 1.0, tw.Value())
	assert.False(t, tw.IsStarted())
}

func TestTween_ZeroDurationFinishesOnFirstPulse(t *testing.T) {
	tw, err := NewTween("flash", 0)
	require.NoError(t, err)

	tw.StartWithoutPulsing(false)
	assert.True(t, tw.PulseFrame(0))
	assert.Equal(t, 1.0, tw.Value())
}

func TestTween_InfiniteNeverFinishes(t *testing.T) {
	tw, err := NewTween("spin", ir.Infinite)
	require.NoError(t, err)

	tw.StartWithoutPulsing(false)
	for i := 0; i < 10; i++ {
		assert.False(t, tw.PulseFrame(time.Duration(i)*time.Hour))
	}
	assert.Equal(t, ir.Infinite, tw.TotalDuration())
	assert.True(t, tw.IsStarted())
}

func TestTween_AnimateBasedOnPlayTime(t *testing.T) {
	var updates []string
	tw, err := NewTween("fade", 200*time.Millisecond, WithInterpolator(Accelerate), WithUpdate(func(v float64) {
		updates = append(updates, fmt.Sprintf("%.2f", v))
	}))
	require.NoError(t, err)

	tw.AnimateBasedOnPlayTime(100*time.Millisecond, 0, false)
	assert.InDelta(t, 0.25, tw.Value(), 1e-9)
	assert.InDelta(t, 0.5, tw.Fraction(), 1e-9)

	tw.AnimateBasedOnPlayTime(50*time.Millisecond, 0, true)
	assert.InDelta(t, 0.5625, tw.Value(), 1e-9)

	tw.SkipToEndValue(true)
	assert.Equal(t, 0.0, tw.Value())
	assert.Equal(t, []string{"0.25", "0.56", "0.00"}, updates)
	assert.False(t, tw.IsStarted(), "evaluation never changes lifecycle state")
}

func TestTween_SetCurrentPlayTimeBeforeStart(t *testing.T) {
	tw, clock := newTestTween(t, "fade", 100*time.Millisecond)

	require.NoError(t, tw.SetCurrentPlayTime(40*time.Millisecond))
	assert.InDelta(t, 0.4, tw.Value(), 1e-9)

	require.NoError(t, tw.Start())
	clock.Step(10 * time.Millisecond)
	assert.InDelta(t, 0.4, tw.Value(), 1e-9)
	clock.Step(10 * time.Millisecond)
	assert.InDelta(t, 0.5, tw.Value(), 1e-9)

	assert.True(t, IsSeekError(tw.SetCurrentPlayTime(-time.Millisecond)))
}

func TestTween_Configuration(t *testing.T) {
	_, err := NewTween("bad", -5*time.Millisecond)
	assert.True(t, IsConfigError(err))

	_, err = NewTween("bad", time.Second, WithStartDelay(-time.Millisecond))
	assert.True(t, IsConfigError(err))

	tw, err := NewTween("ok", time.Second)
	require.NoError(t, err)
	assert.True(t, IsConfigError(tw.SetDuration(-2)))
	assert.Equal(t, time.Second, tw.Duration())
	require.NoError(t, tw.SetDuration(ir.Infinite))
	assert.Equal(t, ir.Infinite, tw.TotalDuration())
}

func TestTween_NoScheduler(t *testing.T) {
	tw, err := NewTween("fade", time.Second)
	require.NoError(t, err)

	err = tw.Start()
	var pe *PlaybackError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrCodeNoScheduler, pe.Code)
	assert.False(t, tw.IsStarted())
}

func TestTween_WrongLoop(t *testing.T) {
	sched := NewScheduler(offLoopClock{testutil.NewFrameClock(0)})
	tw, err := NewTween("fade", time.Second, WithScheduler(sched))
	require.NoError(t, err)

	assert.True(t, IsLoopError(tw.Start()))
	assert.True(t, IsLoopError(tw.End()))
	assert.False(t, tw.IsStarted())
}

func TestEasing(t *testing.T) {
	assert.Nil(t, Easing(""))
	for _, name := range []string{ir.EasingLinear, ir.EasingAccelerate, ir.EasingDecelerate, ir.EasingAccelerateDecelerate} {
		fn := Easing(name)
		require.NotNil(t, fn, name)
		assert.InDelta(t, 0.0, fn(0), 1e-9, name)
		assert.InDelta(t, 1.0, fn(1), 1e-9, name)
	}
	assert.InDelta(t, 0.75, Decelerate(0.5), 1e-9)
	assert.InDelta(t, 0.5, AccelerateDecelerate(0.5), 1e-9)
}
