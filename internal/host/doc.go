// Package host runs timelines in real time.
//
// A Loop is an engine.Provider backed by a ticker. It owns one goroutine:
// frame callbacks, commit callbacks and posted tasks all run there, so
// groups and tweens driven by a Loop never need locks. Other goroutines
// reach the loop through Post and Call.
package host
