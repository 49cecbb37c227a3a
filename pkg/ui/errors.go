package ui

import (
	stderrors "errors"

	"github.com/arthur-debert/mlbuild/pkg/errors"
)

// ErrorView is the rendered form of an error
type ErrorView struct {
	Code     string                 `json:"code" yaml:"code"`
	Category string                 `json:"category" yaml:"category"`
	Message  string                 `json:"message" yaml:"message"`
	Details  map[string]interface{} `json:"details,omitempty" yaml:"details,omitempty"`
}

// NewErrorView extracts code, category and details from err
func NewErrorView(err error) ErrorView {
	var mlErr *errors.MlbuildError
	if !stderrors.As(err, &mlErr) {
		return ErrorView{
			Code:     string(errors.ErrUnknown),
			Category: string(errors.CategoryGeneral),
			Message:  err.Error(),
		}
	}

	msg := mlErr.Message
	if mlErr.Wrapped != nil {
		msg += ": " + mlErr.Wrapped.Error()
	}
	return ErrorView{
		Code:     string(mlErr.Code),
		Category: string(mlErr.Category()),
		Message:  msg,
		Details:  mlErr.Details,
	}
}
