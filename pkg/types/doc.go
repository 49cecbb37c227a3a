// Package types defines the source descriptors shared by the resolver, the
// artifact planner and the build pipeline.
package types
