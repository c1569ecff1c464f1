package engine

import (
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/choreo/internal/compiler"
	"github.com/roach88/choreo/internal/ir"
)

// Start plays the group forward, pulsed by its scheduler.
func (g *Group) Start() error {
	return g.start(false, true)
}

// Reverse plays the group backward from its end. Groups with an infinite
// total duration cannot be reversed.
func (g *Group) Reverse() error {
	return g.start(true, true)
}

// StartWithoutPulsing implements ir.Playable.
func (g *Group) StartWithoutPulsing(reverse bool) {
	if err := g.start(reverse, false); err != nil {
		slog.Error("group start failed", "group", g.name, "error", err)
	}
}

func (g *Group) start(reverse, selfPulse bool) error {
	if err := g.checkLoop(); err != nil {
		return err
	}
	if selfPulse && g.sched == nil {
		return NewNoSchedulerError(g.name)
	}
	g.initAnimation()
	if reverse && !g.CanReverse() {
		return NewReverseError(g.name)
	}
	if g.started {
		// Restarting abandons the current run.
		g.cancel()
	}

	g.started = true
	g.selfPulse = selfPulse
	g.paused = false
	g.pauseTime = -1
	g.reversing = reverse
	g.ended = make([]bool, g.graph.Len())
	slog.Debug("group starting", "group", g.name, "reverse", reverse, "self_pulse", selfPulse)

	empty := isEmptyGroup(g)
	if !empty {
		g.startAnimation()
	}
	for _, l := range slices.Clone(g.listeners) {
		l.OnStart(g, reverse)
	}
	if empty {
		// Nothing to wait for: finish without registering for frames.
		g.end()
	}
	return nil
}

func (g *Group) startAnimation() {
	g.addTracker()
	g.addCallback(0)

	limit := g.seekLimit()
	if g.reversing && g.seek.Active() && g.seek.Normalized(limit) == 0 {
		// Seeking to the start then reversing plays nothing; start from the end.
		g.seek.Reset()
	}
	g.SkipToEndValue(!g.reversing)

	if g.reversing || g.startDelay == 0 || g.seek.Active() {
		var playTime time.Duration
		if g.seek.Active() {
			g.seek.UpdateDirection(limit, g.reversing)
			playTime = g.seek.PlayTime()
			if !g.reversing {
				playTime += g.startDelay
			}
		}
		toID := g.findLatestEventID(playTime)
		g.handleEvents(-1, toID, playTime)
		g.removeEnded()
		g.lastEvent = toID
	}
}

// DoFrame implements FrameCallback.
func (g *Group) DoFrame(frameTime time.Duration) bool {
	return g.doFrame(frameTime)
}

// CommitFrame implements FrameCallback.
func (g *Group) CommitFrame(time.Duration) {}

// PulseFrame implements ir.Playable. It is a no-op for self-pulsing groups.
func (g *Group) PulseFrame(elapsed time.Duration) bool {
	if g.selfPulse {
		return false
	}
	return g.doFrame(elapsed)
}

func (g *Group) doFrame(frameTime time.Duration) bool {
	scale := g.scale()
	if scale == 0 {
		// A zero scale completes everything at once.
		g.end()
		return true
	}

	if !g.anchored {
		g.anchored = true
		g.firstFrame = frameTime
	}

	if g.paused {
		g.pauseTime = frameTime
		g.removeCallback()
		return false
	} else if g.pauseTime >= 0 {
		g.firstFrame += frameTime - g.pauseTime
		g.pauseTime = -1
	}

	if g.seek.Active() {
		g.seek.UpdateDirection(g.seekLimit(), g.reversing)
		if g.reversing {
			g.firstFrame = frameTime - scaled(g.seek.PlayTime(), scale)
		} else {
			g.firstFrame = frameTime - scaled(g.seek.PlayTime()+g.startDelay, scale)
		}
		g.seek.Reset()
	}

	if !g.reversing && frameTime < g.firstFrame+scaled(g.startDelay, scale) {
		// Still in the start delay.
		return false
	}

	playTime := unscaled(frameTime-g.firstFrame, scale)
	g.lastFrame = frameTime

	latest := g.findLatestEventID(playTime)
	g.handleEvents(g.lastEvent, latest, playTime)
	g.lastEvent = latest

	for _, id := range g.playing {
		if !g.isEnded(id) {
			g.pulseNode(id, g.playTimeForNode(playTime, id))
		}
	}
	g.removeEnded()

	var finished bool
	if g.reversing {
		finished = (len(g.playing) == 1 && g.playing[0] == compiler.RootID) ||
			(len(g.playing) == 0 && g.lastEvent < 3)
	} else {
		finished = len(g.playing) == 0 && g.lastEvent == len(g.events())-1
	}
	if finished {
		g.endAnimation()
		return true
	}
	return false
}

// handleEvents processes the events between the last handled one and
// latestID, both exclusive of startID. playTime is measured from the group's
// start in the current direction.
func (g *Group) handleEvents(startID, latestID int, playTime time.Duration) {
	events := g.events()
	if g.reversing {
		if startID == -1 {
			startID = len(events)
		}
		for i := startID - 1; i >= latestID && i >= 0; i-- {
			ev := events[i]
			n := g.graph.At(ev.Node)
			switch ev.Kind {
			case ir.EventEnd:
				if n.Playable.IsStarted() {
					g.cancelChild(n)
				}
				g.markEnded(ev.Node, false)
				g.playing = append(g.playing, ev.Node)
				n.Playable.StartWithoutPulsing(true)
				g.pulseNode(ev.Node, 0)
			case ir.EventDelayEnded:
				if !g.isEnded(ev.Node) {
					g.pulseNode(ev.Node, g.playTimeForNode(playTime, ev.Node))
				}
			}
		}
		return
	}

	for i := startID + 1; i <= latestID; i++ {
		ev := events[i]
		n := g.graph.At(ev.Node)
		switch ev.Kind {
		case ir.EventStart:
			g.playing = append(g.playing, ev.Node)
			if n.Playable.IsStarted() {
				g.cancelChild(n)
			}
			g.markEnded(ev.Node, false)
			n.Playable.StartWithoutPulsing(false)
			g.pulseNode(ev.Node, 0)
		case ir.EventEnd:
			if !g.isEnded(ev.Node) {
				// Give the node a final pulse at its end time.
				g.pulseNode(ev.Node, g.playTimeForNode(playTime, ev.Node))
			}
		}
	}
}

// findLatestEventID returns the index of the last event due at playTime,
// scanning on from the last handled event.
func (g *Group) findLatestEventID(playTime time.Duration) int {
	events := g.events()
	latest := g.lastEvent
	if g.reversing {
		t := g.TotalDuration() - playTime
		if g.lastEvent == -1 {
			g.lastEvent = len(events)
		}
		for j := g.lastEvent - 1; j >= 0; j-- {
			if events[j].Time >= t {
				latest = j
			}
		}
		return latest
	}
	for i := g.lastEvent + 1; i < len(events); i++ {
		if ev := events[i]; ev.Time != ir.Infinite && ev.Time <= playTime {
			latest = i
		}
	}
	return latest
}

func (g *Group) pulseNode(id compiler.NodeID, playTime time.Duration) {
	if g.isEnded(id) {
		return
	}
	scale := g.scale()
	if scale == 0 {
		scale = 1
	}
	g.markEnded(id, g.graph.At(id).Playable.PulseFrame(scaled(playTime, scale)))
}

// playTimeForNode converts the group's play time to the node's own elapsed
// time in the current direction.
func (g *Group) playTimeForNode(playTime time.Duration, id compiler.NodeID) time.Duration {
	n := g.graph.At(id)
	if g.reversing {
		overall := g.TotalDuration() - playTime
		return n.End - overall
	}
	return playTime - n.Start
}

func (g *Group) removeEnded() {
	g.playing = slices.DeleteFunc(g.playing, g.isEnded)
}

// End jumps to the final state of the current direction: every child that
// has not finished is started if needed and ended. Ending a group that never
// started starts it first.
func (g *Group) End() error {
	if err := g.checkLoop(); err != nil {
		return err
	}
	return g.end()
}

func (g *Group) end() error {
	if !g.started {
		if err := g.start(false, false); err != nil {
			return err
		}
		if !g.started {
			return nil
		}
	}
	slog.Debug("group ending", "group", g.name, "reverse", g.reversing)

	events := g.events()
	if g.reversing {
		if g.lastEvent == -1 {
			g.lastEvent = len(events)
		}
		for g.lastEvent > 0 {
			g.lastEvent--
			ev := events[g.lastEvent]
			if g.isEnded(ev.Node) {
				continue
			}
			n := g.graph.At(ev.Node)
			switch ev.Kind {
			case ir.EventEnd:
				if !n.Playable.IsStarted() {
					n.Playable.StartWithoutPulsing(true)
				}
			case ir.EventDelayEnded:
				if n.Playable.IsStarted() {
					g.endChild(ev.Node)
				}
			}
		}
	} else {
		for g.lastEvent < len(events)-1 {
			g.lastEvent++
			ev := events[g.lastEvent]
			if g.isEnded(ev.Node) {
				continue
			}
			n := g.graph.At(ev.Node)
			switch ev.Kind {
			case ir.EventStart:
				// Nodes pinned by a cycle never play.
				if ev.Time != ir.Infinite && !n.Playable.IsStarted() {
					n.Playable.StartWithoutPulsing(false)
				}
			case ir.EventEnd:
				if n.Playable.IsStarted() {
					g.endChild(ev.Node)
				}
			}
		}
	}
	for _, id := range g.playing {
		if !g.isEnded(id) && g.graph.At(id).Playable.IsStarted() {
			g.endChild(id)
		}
	}
	g.playing = nil
	g.endAnimation()
	return nil
}

// Cancel stops the group where it is. Cancel listeners fire before end
// listeners.
func (g *Group) Cancel() error {
	if err := g.checkLoop(); err != nil {
		return err
	}
	g.cancel()
	return nil
}

func (g *Group) cancel() {
	if !g.started {
		return
	}
	slog.Debug("group canceled", "group", g.name)
	for _, l := range slices.Clone(g.listeners) {
		l.OnCancel(g)
	}
	for _, id := range slices.Clone(g.playing) {
		g.cancelChild(g.graph.At(id))
	}
	g.playing = nil
	g.endAnimation()
}

// Pause freezes a started group on its next frame. Children are not
// notified; they are simply no longer pulsed.
func (g *Group) Pause() error {
	if err := g.checkLoop(); err != nil {
		return err
	}
	if g.started && !g.paused {
		g.paused = true
		g.pauseTime = -1
	}
	return nil
}

// Resume continues a paused group. The time spent paused is skipped.
func (g *Group) Resume() error {
	if err := g.checkLoop(); err != nil {
		return err
	}
	if g.paused {
		g.paused = false
		if g.pauseTime >= 0 {
			g.addCallback(0)
		}
	}
	return nil
}

func (g *Group) endAnimation() {
	g.started = false
	g.lastFrame = -1
	g.firstFrame = -1
	g.anchored = false
	g.lastEvent = -1
	g.paused = false
	g.pauseTime = -1
	g.seek.Reset()
	g.playing = nil
	g.removeCallback()

	for _, l := range slices.Clone(g.listeners) {
		l.OnEnd(g, g.reversing)
	}
	g.removeTracker()
	g.selfPulse = true
	g.reversing = false
}

// SetCurrentPlayTime moves the group to t past its start delay, measured in
// the current direction. A group that is not running is evaluated at once;
// a running one jumps on its next frame.
func (g *Group) SetCurrentPlayTime(t time.Duration) error {
	if err := g.checkLoop(); err != nil {
		return err
	}
	total := g.TotalDuration()
	if g.reversing && total == ir.Infinite {
		return NewReverseError(g.name)
	}
	limit := g.seekLimit()
	if t < 0 || (limit != ir.Infinite && t > limit) {
		return NewSeekError(g.name, t, limit)
	}
	slog.Debug("group seek", "group", g.name, "play_time", t, "reverse", g.reversing)

	g.initAnimation()
	if !g.started || g.paused {
		if !g.seek.Active() {
			g.initChildren()
			g.seek.SetPlayTime(0, limit, g.reversing)
		}
		g.animateBasedOnPlayTime(t, 0, g.reversing)
	}
	g.seek.SetPlayTime(t, limit, g.reversing)
	return nil
}

// AnimateBasedOnPlayTime implements ir.Playable.
func (g *Group) AnimateBasedOnPlayTime(current, last time.Duration, reverse bool) {
	g.animateBasedOnPlayTime(current, last, reverse)
}

// animateBasedOnPlayTime evaluates every child at current without touching
// lifecycle state. Finished children skip to their end value, children
// inside their window are evaluated, and children not yet reached skip to
// their start value.
func (g *Group) animateBasedOnPlayTime(current, last time.Duration, reverse bool) {
	g.initAnimation()
	limit := g.seekLimit()
	if reverse {
		if limit == ir.Infinite {
			return
		}
		current = limit - min(current, limit)
		last = limit - min(last, limit)
	}
	now := current + g.startDelay
	prev := last + g.startDelay

	events := g.events()
	var unfinished []compiler.NodeID
	for _, ev := range events {
		if ev.Time == ir.Infinite || ev.Time > now {
			break
		}
		n := g.graph.At(ev.Node)
		switch ev.Kind {
		case ir.EventDelayEnded:
			if n.End == ir.Infinite || n.End > now {
				unfinished = append(unfinished, ev.Node)
			}
		case ir.EventEnd:
			n.Playable.SkipToEndValue(false)
		}
	}

	for _, id := range unfinished {
		n := g.graph.At(id)
		offset := n.Start + n.Playable.StartDelay()
		n.Playable.AnimateBasedOnPlayTime(now-offset, max(prev-offset, 0), false)
	}

	for _, ev := range events {
		if (ev.Time == ir.Infinite || ev.Time > now) && ev.Kind == ir.EventDelayEnded {
			g.graph.At(ev.Node).Playable.SkipToEndValue(true)
		}
	}
}

// SkipToEndValue implements ir.Playable.
func (g *Group) SkipToEndValue(reverse bool) {
	g.initAnimation()
	events := g.events()
	if reverse {
		for i := len(events) - 1; i >= 0; i-- {
			if events[i].Kind == ir.EventDelayEnded {
				g.graph.At(events[i].Node).Playable.SkipToEndValue(true)
			}
		}
		return
	}
	for _, ev := range events {
		if ev.Kind == ir.EventEnd {
			g.graph.At(ev.Node).Playable.SkipToEndValue(false)
		}
	}
}

func (g *Group) initChildren() {
	if !g.childrenInitialized {
		g.childrenInitialized = true
		g.SkipToEndValue(false)
	}
}

func (g *Group) events() []compiler.Event {
	return g.graph.Compile().Events
}

// seekLimit is the seekable length: total duration minus start delay.
func (g *Group) seekLimit() time.Duration {
	total := g.TotalDuration()
	if total == ir.Infinite {
		return ir.Infinite
	}
	return total - g.startDelay
}

func (g *Group) endChild(id compiler.NodeID) {
	n := g.graph.At(id)
	if err := n.Playable.End(); err != nil {
		slog.Error("child end failed", "group", g.name, "child", n.Name, "error", err)
	}
	g.markEnded(id, true)
}

func (g *Group) cancelChild(n *compiler.Node) {
	if err := n.Playable.Cancel(); err != nil {
		slog.Error("child cancel failed", "group", g.name, "child", n.Name, "error", err)
	}
}

func (g *Group) addTracker() {
	for _, p := range g.graph.Playables() {
		if o, ok := p.(ir.Observable); ok {
			o.AddListener(g.tracker)
		}
	}
}

func (g *Group) removeTracker() {
	for _, p := range g.graph.Playables() {
		if o, ok := p.(ir.Observable); ok {
			o.RemoveListener(g.tracker)
		}
	}
}

func (g *Group) addCallback(delay time.Duration) {
	if !g.selfPulse || g.sched == nil {
		return
	}
	g.sched.AddFrameCallback(g, delay)
}

func (g *Group) removeCallback() {
	if !g.selfPulse || g.sched == nil {
		return
	}
	g.sched.RemoveCallback(g)
}
