package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"
	ErrConfigValid ErrorCode = "CONFIG_INVALID"

	// Resolution errors
	ErrRootNotFound ErrorCode = "ROOT_NOT_FOUND"
	ErrNoSources    ErrorCode = "NO_SOURCES"

	// Classification warnings (never fatal)
	ErrUnsupportedSource ErrorCode = "UNSUPPORTED_SOURCE"

	// Planning errors
	ErrCollision ErrorCode = "OUTPUT_COLLISION"

	// Stage errors
	ErrStageFailed  ErrorCode = "STAGE_FAILED"
	ErrStageTimeout ErrorCode = "STAGE_TIMEOUT"
	ErrStageStart   ErrorCode = "STAGE_START"

	// Object format errors
	ErrFormatMagic     ErrorCode = "FORMAT_MAGIC"
	ErrFormatTruncated ErrorCode = "FORMAT_TRUNCATED"
	ErrFormatRecord    ErrorCode = "FORMAT_RECORD"

	// FileSystem errors
	ErrFileAccess ErrorCode = "FILE_ACCESS"
	ErrFileWrite  ErrorCode = "FILE_WRITE"
	ErrDirCreate  ErrorCode = "DIR_CREATE"
)

// Category groups error codes into the classes reported to users.
type Category string

const (
	CategoryGeneral        Category = "general"
	CategoryResolution     Category = "resolution"
	CategoryClassification Category = "classification"
	CategoryCollision      Category = "collision"
	CategoryStage          Category = "stage"
	CategoryFormat         Category = "format"
)

// CategoryOf returns the category an error code belongs to
func CategoryOf(code ErrorCode) Category {
	switch code {
	case ErrRootNotFound, ErrNoSources:
		return CategoryResolution
	case ErrUnsupportedSource:
		return CategoryClassification
	case ErrCollision:
		return CategoryCollision
	case ErrStageFailed, ErrStageTimeout, ErrStageStart:
		return CategoryStage
	case ErrFormatMagic, ErrFormatTruncated, ErrFormatRecord:
		return CategoryFormat
	default:
		return CategoryGeneral
	}
}

// MlbuildError represents a structured error with code and details
type MlbuildError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *MlbuildError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *MlbuildError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *MlbuildError) Is(target error) bool {
	var targetErr *MlbuildError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// Category returns the category of the error's code
func (e *MlbuildError) Category() Category {
	return CategoryOf(e.Code)
}

// New creates a new MlbuildError with the given code and message
func New(code ErrorCode, message string) *MlbuildError {
	return &MlbuildError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new MlbuildError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *MlbuildError {
	return &MlbuildError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a MlbuildError
func Wrap(err error, code ErrorCode, message string) *MlbuildError {
	if err == nil {
		return nil
	}
	return &MlbuildError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *MlbuildError {
	if err == nil {
		return nil
	}
	return &MlbuildError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *MlbuildError) WithDetail(key string, value interface{}) *MlbuildError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *MlbuildError) WithDetails(details map[string]interface{}) *MlbuildError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var mlErr *MlbuildError
	if errors.As(err, &mlErr) {
		return mlErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a MlbuildError
func GetErrorCode(err error) ErrorCode {
	var mlErr *MlbuildError
	if errors.As(err, &mlErr) {
		return mlErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a MlbuildError
func GetErrorDetails(err error) map[string]interface{} {
	var mlErr *MlbuildError
	if errors.As(err, &mlErr) {
		return mlErr.Details
	}
	return nil
}

// GetCategory returns the category of an error, or CategoryGeneral if not a MlbuildError
func GetCategory(err error) Category {
	return CategoryOf(GetErrorCode(err))
}
