// Package trace records what a playback run did.
//
// A Recorder listens to a group and its clips and stamps every lifecycle
// callback with a logical sequence number from Clock and the frame time at
// which it fired. Scripted actions (seek, pause, ...) are noted alongside.
//
// # Determinism
//
// Entries carry no wall-clock data. Two runs of the same definition with the
// same options and the same frame script produce identical entry lists, which
// is what replay verification compares.
package trace
