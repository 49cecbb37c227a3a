package artifacts

import (
	"path/filepath"

	"github.com/arthur-debert/mlbuild/pkg/config"
)

// Derived names the files the assemble stage writes for one assembly file
type Derived struct {
	Assembly string `json:"assembly" yaml:"assembly"`
	Binary   string `json:"binary" yaml:"binary"`
	Object   string `json:"object" yaml:"object"`
}

// Derive returns the pre-link binary and object paths next to assembly
func Derive(assembly string, exts config.Extensions) Derived {
	return Derived{
		Assembly: assembly,
		Binary:   ReplaceExt(assembly, exts.Binary),
		Object:   ReplaceExt(assembly, exts.Object),
	}
}

// Dedupe removes repeated paths, keeping the first occurrence of each
func Dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		key := filepath.Clean(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}
