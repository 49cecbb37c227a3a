// Package testutil provides utilities for testing mlbuild components.
//
// Key components:
//   - NewMemTree / NewDiskTree: declarative source trees on an in-memory
//     or temporary on-disk filesystem
//   - FakeRunner: a stage.Runner that behaves like the real toolchain by
//     writing the files each stage is expected to produce
//   - MockRunner: a testify mock of stage.Runner for interaction tests
//
// Usage guidelines:
//   - Most tests should use in-memory trees for speed and isolation
//   - All test data should be defined inline, not in external files
package testutil
