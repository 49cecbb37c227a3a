// Package filesystem provides the filesystem operations the build needs.
//
// Everything goes through an afero.Fs so the resolver and the pipeline can
// run against the real disk (NewOS) or an in-memory tree in tests
// (NewMemory).
package filesystem
