package artifacts

import (
	"path/filepath"
	"strings"

	"github.com/arthur-debert/mlbuild/pkg/config"
	"github.com/arthur-debert/mlbuild/pkg/errors"
	"github.com/arthur-debert/mlbuild/pkg/types"
)

// Entry pairs a source with the assembly file it must produce
type Entry struct {
	Output string                 `json:"output" yaml:"output"`
	Source types.SourceDescriptor `json:"source" yaml:"source"`
}

// Plan maps every planned assembly path to the single source producing it.
// Entries keep insertion order.
type Plan struct {
	BuildDir string
	exts     config.Extensions
	entries  []Entry
	index    map[string]int
}

// NewPlan creates an empty plan rooted at buildDir
func NewPlan(buildDir string, exts config.Extensions) *Plan {
	return &Plan{
		BuildDir: filepath.Clean(buildDir),
		exts:     exts,
		index:    make(map[string]int),
	}
}

// PlanOutputs plans every source in order, failing on the first collision
func PlanOutputs(srcs []types.SourceDescriptor, buildDir string, exts config.Extensions) (*Plan, error) {
	plan := NewPlan(buildDir, exts)
	for _, src := range srcs {
		if _, err := plan.Add(src); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

// Add plans one source and returns its output path. Adding a source that
// already owns its output is a no-op; a different source claiming the same
// output is a collision.
func (p *Plan) Add(src types.SourceDescriptor) (string, error) {
	output := AssemblyPath(p.BuildDir, src, p.exts)

	if i, ok := p.index[output]; ok {
		existing := p.entries[i].Source
		if sameSource(existing, src) {
			return output, nil
		}
		return "", errors.Newf(errors.ErrCollision,
			"output collision: %s is produced by both %s and %s",
			output, existing.AbsolutePath, src.AbsolutePath).
			WithDetail("output", output).
			WithDetail("first_source", existing.AbsolutePath).
			WithDetail("second_source", src.AbsolutePath)
	}

	p.index[output] = len(p.entries)
	p.entries = append(p.entries, Entry{Output: output, Source: src})
	return output, nil
}

// Entries returns the planned entries in insertion order
func (p *Plan) Entries() []Entry {
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Lookup returns the source that produces output
func (p *Plan) Lookup(output string) (types.SourceDescriptor, bool) {
	i, ok := p.index[filepath.Clean(output)]
	if !ok {
		return types.SourceDescriptor{}, false
	}
	return p.entries[i].Source, true
}

// Len returns the number of planned outputs
func (p *Plan) Len() int {
	return len(p.entries)
}

// AssemblyPath is the build-directory location of the assembly file for
// src. High-level sources swap their extension for the assembly one;
// pre-assembled sources keep their name.
func AssemblyPath(buildDir string, src types.SourceDescriptor, exts config.Extensions) string {
	rel := filepath.FromSlash(src.RelativePath)
	switch src.Kind {
	case types.HighLevel:
		rel = ReplaceExt(rel, exts.PreAssembled)
	case types.PreAssembled:
	}
	return filepath.Join(buildDir, rel)
}

// ReplaceExt swaps the last extension of path for ext
func ReplaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func sameSource(a, b types.SourceDescriptor) bool {
	return filepath.Clean(a.AbsolutePath) == filepath.Clean(b.AbsolutePath)
}
