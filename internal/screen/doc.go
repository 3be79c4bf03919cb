// Package screen sweeps every (oligo length, position) window of a template
// against a reference set on a bounded worker pool and assembles the result
// tree.
//
// The only per-worker resource is a Matcher built by a MatcherFactory. Any
// aligner (including fakes in tests) that satisfies Matcher can drive a run.
package screen
