// Package rules decides whether a relative path is excluded from a build.
//
// # Rule Conventions
//
// Rules are plain strings, never globs or regular expressions:
//
//   - `vendor/legacy` - Subtree rule (contains a slash). Excludes the path
//     itself and everything nested under it, but not `vendor/legacyx`.
//   - `build` - Segment rule (no slash). Excludes any path that has a
//     segment exactly equal to `build`, at any depth.
//
// Both paths and rules are normalized first: backslashes become slashes and
// leading/trailing slashes are stripped. Empty rules and empty paths never
// match.
//
// # Order Independence
//
// The result is a pure function of the path and the set of rules. Rule
// order never matters and duplicates are harmless, so configuration
// defaults and command-line rules can be merged freely.
//
// # Configuration
//
// Default rules come from the `build.excludes` key:
//
//	[build]
//	excludes = [".git", "tests/fixtures"]
//
// and are merged with every `--exclude` given on the command line.
package rules
