package pipeline

import (
	"time"

	"github.com/arthur-debert/mlbuild/pkg/artifacts"
	"github.com/arthur-debert/mlbuild/pkg/types"
)

// Unit tracks one source through the produce and assemble stages
type Unit struct {
	Source   types.SourceDescriptor `json:"source" yaml:"source"`
	Assembly string                 `json:"assembly" yaml:"assembly"`
	Binary   string                 `json:"binary,omitempty" yaml:"binary,omitempty"`
	Object   string                 `json:"object,omitempty" yaml:"object,omitempty"`
	// Copied is set when a pre-assembled source was copied into place
	Copied bool `json:"copied,omitempty" yaml:"copied,omitempty"`
}

// StageTiming records how long a stage took
type StageTiming struct {
	Stage    string        `json:"stage" yaml:"stage"`
	Units    int           `json:"units" yaml:"units"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Result is the state of one build run
type Result struct {
	BuildDir string                   `json:"build_dir" yaml:"build_dir"`
	Output   string                   `json:"output" yaml:"output"`
	Sources  []types.SourceDescriptor `json:"sources" yaml:"sources"`
	Plan     []artifacts.Entry        `json:"plan" yaml:"plan"`
	Units    []Unit                   `json:"units" yaml:"units"`
	// LinkInputs are the deduplicated objects in link order
	LinkInputs []string      `json:"link_inputs" yaml:"link_inputs"`
	Warnings   []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	RunOutput  string        `json:"run_output,omitempty" yaml:"run_output,omitempty"`
	Stages     []StageTiming `json:"stages" yaml:"stages"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
}

func (r *Result) timed(stage string, units int, start time.Time) {
	r.Stages = append(r.Stages, StageTiming{Stage: stage, Units: units, Duration: time.Since(start)})
}
