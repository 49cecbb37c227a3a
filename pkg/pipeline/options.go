package pipeline

import (
	"path/filepath"
	"strings"

	"github.com/arthur-debert/mlbuild/pkg/errors"
)

// Options controls one build
type Options struct {
	// Output is the path of the final linked image
	Output string
	// BuildDir holds intermediates; defaults to Output's directory
	BuildDir string
	// Entry rebinds the program start symbol at compile time
	Entry string
	// IncludePreAssembled accepts assembly sources found during resolution
	IncludePreAssembled bool
	// Clean wipes BuildDir before anything else happens
	Clean bool
	// Jobs bounds concurrent units within a stage
	Jobs int
	// Verify decodes and validates every object before linking
	Verify bool
	// Run boots the linked image in the emulator with ROM
	Run bool
	ROM string
}

// normalize resolves paths and fills defaults
func (o Options) normalize() (Options, error) {
	if o.Output == "" {
		return o, errors.New(errors.ErrInvalidInput, "an output path is required")
	}
	out, err := filepath.Abs(o.Output)
	if err != nil {
		return o, errors.Wrap(err, errors.ErrInvalidInput, "cannot resolve output path").
			WithDetail("path", o.Output)
	}
	o.Output = out

	if o.BuildDir == "" {
		o.BuildDir = filepath.Dir(o.Output)
	}
	if o.BuildDir, err = filepath.Abs(o.BuildDir); err != nil {
		return o, errors.Wrap(err, errors.ErrInvalidInput, "cannot resolve build directory").
			WithDetail("path", o.BuildDir)
	}

	if o.Jobs < 1 {
		o.Jobs = 1
	}

	if o.Run {
		if o.ROM == "" {
			return o, errors.New(errors.ErrInvalidInput, "running the image requires a ROM (--rom or run.rom)")
		}
		if o.ROM, err = filepath.Abs(o.ROM); err != nil {
			return o, errors.Wrap(err, errors.ErrInvalidInput, "cannot resolve ROM path").
				WithDetail("path", o.ROM)
		}
	}
	return o, nil
}

// isWithin reports whether path is dir or lies below it
func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
