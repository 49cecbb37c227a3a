// Package sources discovers the files a build is made of.
//
// Each root given on the command line is either a single file or a
// directory. Directories are walked top-down; a directory excluded by the
// rule set is pruned before it is entered, so nothing beneath it is ever
// read. Files are classified once, by extension, into a closed set of
// kinds (see types.SourceKind), and every other file is skipped with a
// warning.
//
// Results are ordered by root, then by relative path within the root, so
// repeated runs over the same tree produce the same list.
package sources
