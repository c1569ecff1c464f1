// Package ir provides the shared contracts and declarative documents for choreo.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps ir the foundational
// layer with no circular dependencies.
//
// Two kinds of types live here:
//   - Runtime contracts consumed by the scheduler: Playable, Listener,
//     Observable and the optional setter interfaces.
//   - Declarative timeline documents (Definition, Clip, Relation) loaded from
//     YAML or CUE, together with their canonical JSON form and content hash.
//
// Time is expressed as time.Duration. The sentinel Infinite marks a value that
// never resolves (an unbounded clip, or a node that is never scheduled).
package ir
