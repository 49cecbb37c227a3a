// Package ui renders command results for people and for programs.
// Terminal output is styled with lipgloss, text output is plain and the
// JSON and YAML formats emit the full underlying data.
package ui

import (
	"io"
	"os"

	"github.com/arthur-debert/mlbuild/pkg/errors"
	"github.com/arthur-debert/mlbuild/pkg/objfile"
	"github.com/arthur-debert/mlbuild/pkg/pipeline"
)

// Renderer is the common interface for all output renderers
type Renderer interface {
	// RenderBuild reports a finished build
	RenderBuild(res *pipeline.Result) error

	// RenderInspection reports the contents of inspected objects
	RenderInspection(reports []*objfile.Report) error

	// RenderError renders an error with its context
	RenderError(err error) error

	// RenderMessage renders a simple message
	RenderMessage(msg string) error
}

// NewRenderer creates a renderer for format. Auto detects the
// capabilities of output when it is a file and falls back to plain text
// otherwise.
func NewRenderer(format Format, output io.Writer) (Renderer, error) {
	switch format {
	case FormatAuto:
		if file, ok := output.(*os.File); ok {
			return NewRenderer(DetectFormat(file), output)
		}
		return NewRenderer(FormatText, output)
	case FormatTerminal:
		return &textRenderer{out: output, style: true}, nil
	case FormatText:
		return &textRenderer{out: output}, nil
	case FormatJSON:
		return newJSONRenderer(output), nil
	case FormatYAML:
		return newYAMLRenderer(output), nil
	default:
		return nil, errors.Newf(errors.ErrInvalidInput, "unknown format: %v", format)
	}
}
