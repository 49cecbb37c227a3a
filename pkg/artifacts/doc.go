// Package artifacts decides where every intermediate file of a build lives.
//
// The build directory mirrors the relative layout of the sources. A plan
// maps each assembly output to exactly one source; two different sources
// that would write the same output are rejected before any stage runs.
package artifacts
