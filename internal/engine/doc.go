// Package engine plays choreographed timelines frame by frame.
//
// A Group holds playables and the relations between them (with, before,
// after). On start it compiles those relations into a sorted event
// timeline and then walks that timeline once per frame, starting, pulsing
// and ending its children as their events come due.
//
// ARCHITECTURE:
//
// Single-Goroutine Frame Loop:
// Every frame comes from a Provider (the frame clock) through a Scheduler.
// All state changes happen inside a frame callback or inside a direct call
// (Start, SetCurrentPlayTime, Cancel) on the same goroutine. There are no
// locks; calls from another goroutine are rejected with WRONG_LOOP when the
// provider can tell.
//
// Frame Processing Flow:
// 1. Scheduler.frame dispatches DoFrame to every due subscriber
// 2. Group.doFrame converts the frame time to a play time
// 3. findLatestEventID finds the events that came due since the last frame
// 4. handleEvents starts or finishes the nodes those events name
// 5. Every playing node is pulsed with its own elapsed time
// 6. When the last event is handled and nothing plays, the group ends
//
// Nested groups are pulsed by their parent through PulseFrame and never
// register with the scheduler themselves.
//
// CRITICAL PATTERNS:
//
// Frame Time Only:
// Play time is derived from provider frame times, never the wall clock, so
// a manual provider replays a run exactly.
//
// Listener Reentrancy:
// Listeners run synchronously. A listener that calls back into the group
// that notified it has undefined behavior.
package engine
