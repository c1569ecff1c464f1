// Package harness runs scripted playback scenarios against timelines.
//
// A scenario names a timeline definition, playback options and a list of
// steps. Steps call lifecycle methods on the group or one of its clips, or
// advance a manual frame clock. Every lifecycle callback is recorded, the
// run is persisted to an in-memory store, and assertions are evaluated
// against the stored trace and the final clip states.
//
// # Scenario Format
//
//	name: sequence_plays_in_order
//	description: "fade plays before slide"
//	timeline: ../timelines/intro.yaml
//	frame_delay: 10ms
//	steps:
//	  - action: start
//	  - frames: 5
//	  - action: seek
//	    at: 120ms
//	  - action: seek
//	    at: 5s
//	    expect_error: SEEK_OUT_OF_RANGE
//	  - until_idle: true
//	assertions:
//	  - type: trace_contains
//	    entry: "fade end"
//	  - type: trace_order
//	    entries: ["fade end", "slide start"]
//	  - type: trace_count
//	    entry: "slide start"
//	    count: 1
//	  - type: final_value
//	    clip: slide
//	    value: 1
//	  - type: final_state
//	    clip: slide
//	    started: false
//
// A definition may be given inline under `definition:` instead of
// `timeline:`.
//
// # Deterministic Testing
//
// Frames come from testutil.FrameClock, trace entries carry logical seq
// numbers, and run ids come from engine.FixedGenerator, so a scenario
// produces byte-identical traces on every run. RunWithGolden compares them
// against files under testdata/golden.
package harness
