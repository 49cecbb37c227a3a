// Package pipeline drives a build from source roots to a linked image.
//
// A build runs its stages strictly in order: resolve and plan, produce one
// assembly file per source, assemble every assembly file, link the
// deduplicated objects and optionally boot the image in the emulator.
// Within the produce and assemble stages independent units may run
// concurrently; the stage only completes once every unit has finished and
// the first failure, in source order, aborts the build.
//
// Each run accumulates its state in a Result owned by that run. Workers
// write only to their own slot and the driver merges after the join.
package pipeline
