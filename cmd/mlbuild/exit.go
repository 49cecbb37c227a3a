package mlbuild

import (
	"io"

	"github.com/arthur-debert/mlbuild/pkg/errors"
	"github.com/arthur-debert/mlbuild/pkg/ui"
)

// Process exit codes
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitResolution = 2
	ExitCollision  = 3
	ExitStage      = 4
)

// ExitCode maps an error to the process exit status
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch errors.GetCategory(err) {
	case errors.CategoryResolution:
		return ExitResolution
	case errors.CategoryCollision:
		return ExitCollision
	case errors.CategoryStage:
		return ExitStage
	default:
		return ExitFailure
	}
}

// ReportError renders err for a person reading output
func ReportError(output io.Writer, err error) {
	renderer, rerr := ui.NewRenderer(ui.FormatAuto, output)
	if rerr != nil {
		return
	}
	_ = renderer.RenderError(err)
}
