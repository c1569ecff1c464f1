package host

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/petermattis/goid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/choreo/internal/engine"
	"github.com/roach88/choreo/internal/ir"
)

// startLoop runs l on its own goroutine until the test ends.
func startLoop(t *testing.T, l *Loop) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("loop did not stop")
		}
	})
}

func TestLoop_Affinity(t *testing.T) {
	l := NewLoop(5 * time.Millisecond)
	startLoop(t, l)

	assert.False(t, l.OnLoop())

	var onLoop bool
	require.NoError(t, l.Call(context.Background(), func() error {
		onLoop = l.OnLoop()
		return nil
	}))
	assert.True(t, onLoop)

	want := errors.New("boom")
	assert.ErrorIs(t, l.Call(context.Background(), func() error { return want }), want)
}

func TestLoop_FramesAdvance(t *testing.T) {
	l := NewLoop(2 * time.Millisecond)
	startLoop(t, l)

	got := make(chan time.Duration, 2)
	require.NoError(t, l.Call(context.Background(), func() error {
		l.PostFrameCallback(func(ft time.Duration) {
			got <- ft
			l.PostFrameCallback(func(ft time.Duration) { got <- ft })
		})
		return nil
	}))

	var first, second time.Duration
	select {
	case first = <-got:
	case <-time.After(time.Second):
		t.Fatal("no frame")
	}
	select {
	case second = <-got:
	case <-time.After(time.Second):
		t.Fatal("no second frame")
	}
	assert.Greater(t, second, first)
	assert.Positive(t, l.FrameTime())
}

func TestLoop_PlaysTween(t *testing.T) {
	l := NewLoop(2 * time.Millisecond)
	startLoop(t, l)

	ended := make(chan float64, 1)
	var tw *engine.Tween
	err := l.Call(context.Background(), func() error {
		var err error
		tw, err = engine.NewTween("fade", 20*time.Millisecond, engine.WithScheduler(engine.NewScheduler(l)))
		if err != nil {
			return err
		}
		tw.AddListener(&ir.ListenerFuncs{End: func(ir.Playable, bool) { ended <- tw.Value() }})
		return tw.Start()
	})
	require.NoError(t, err)

	select {
	case v := <-ended:
		assert.Equal(t, 1.0, v)
	case <-time.After(2 * time.Second):
		t.Fatal("tween never ended")
	}
}

func TestLoop_WrongGoroutineRejected(t *testing.T) {
	l := NewLoop(5 * time.Millisecond)
	startLoop(t, l)

	var tw *engine.Tween
	require.NoError(t, l.Call(context.Background(), func() error {
		var err error
		tw, err = engine.NewTween("fade", time.Second, engine.WithScheduler(engine.NewScheduler(l)))
		return err
	}))

	assert.True(t, engine.IsLoopError(tw.Start()))
}

func TestLoop_StopAndRestart(t *testing.T) {
	l := NewLoop(5 * time.Millisecond)
	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background()) }()

	require.NoError(t, l.Call(context.Background(), func() error { return nil }))
	assert.ErrorIs(t, l.Run(context.Background()), ErrRunning)

	l.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
	assert.False(t, l.Post(func() {}))
	assert.ErrorIs(t, l.Call(context.Background(), func() error { return nil }), ErrStopped)
}

func TestLoop_SetFrameDelay(t *testing.T) {
	l := NewLoop(0)
	assert.Equal(t, DefaultFrameDelay, l.FrameDelay())
	l.SetFrameDelay(4 * time.Millisecond)
	assert.Equal(t, 4*time.Millisecond, l.FrameDelay())
	l.SetFrameDelay(-1)
	assert.Equal(t, 4*time.Millisecond, l.FrameDelay())
}

func TestLoop_OnLoopOnlyOnItsGoroutine(t *testing.T) {
	l := NewLoop(time.Millisecond)
	assert.False(t, l.OnLoop(), "a loop that never ran has no goroutine")
	startLoop(t, l)

	var loopID int64
	require.NoError(t, l.Call(context.Background(), func() error {
		loopID = goid.Get()
		assert.True(t, l.OnLoop())
		return nil
	}))
	assert.NotEqual(t, goid.Get(), loopID)
	assert.False(t, l.OnLoop())
}
