package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/MimeLyc/dataset-translator/pkg/log"
)

type ErrorType int

const (
	ErrConfig ErrorType = iota
	ErrDataset
	ErrCheckpoint
	ErrModelResolution
	ErrTranslation
	ErrDecode
	ErrAPI
	ErrUnsupportedLanguage
	ErrUnknown
)

type Error struct {
	Type    ErrorType
	Message string
	Context map[string]any
	Cause   error
}

func New(errorType ErrorType, message string) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

func Newf(errorType ErrorType, format string, args ...any) *Error {
	return New(errorType, fmt.Sprintf(format, args...))
}

func NewWithCause(errorType ErrorType, message string, cause error) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
		Cause:   cause,
	}
}

func (e *Error) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Type.String(), e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var ctxParts []string
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) WithContext(key string, value any) *Error {
	e.Context[key] = value
	return e
}

func (t ErrorType) String() string {
	switch t {
	case ErrConfig:
		return "Config"
	case ErrDataset:
		return "Dataset"
	case ErrCheckpoint:
		return "Checkpoint"
	case ErrModelResolution:
		return "ModelResolution"
	case ErrTranslation:
		return "Translation"
	case ErrDecode:
		return "Decode"
	case ErrAPI:
		return "API"
	case ErrUnsupportedLanguage:
		return "UnsupportedLanguage"
	default:
		return "Unknown"
	}
}

type ErrorHandler interface {
	Handle(err error) bool
	GetAdvice(err *Error) string
}

type DefaultErrorHandler struct{}

func NewDefaultErrorHandler() ErrorHandler {
	return &DefaultErrorHandler{}
}

// Handle logs err with advice. It reports false for errors outside the taxonomy.
func (h *DefaultErrorHandler) Handle(err error) bool {
	var appErr *Error
	if !errors.As(err, &appErr) {
		log.Error("Unknown Error: %v", err)
		return false
	}

	log.Error("Error Detail: %v\n advice: %s", err, h.GetAdvice(appErr))
	return true
}

func (h *DefaultErrorHandler) GetAdvice(err *Error) string {
	switch err.Type {
	case ErrConfig:
		return "Check the command line flags and environment variables; checkpoint_n must be a multiple of batch_size"
	case ErrDataset:
		return "Check that the dataset name or path exists and exposes the configured text and language fields"
	case ErrCheckpoint:
		return "Ensure the checkpoint location is writable and not modified by another process"
	case ErrModelResolution:
		return "Ensure MODEL_DIR contains an exported model for this language pair"
	case ErrTranslation:
		return "The batch was skipped; try reducing batch_size or check the model runtime"
	case ErrDecode:
		return "The source text was kept for this item"
	case ErrAPI:
		return "Check the API key, quota and network connectivity to the LLM service"
	case ErrUnsupportedLanguage:
		return "The LLM backend cannot translate this language pair; use a local model backend instead"
	default:
		return "Please review detailed error information and check relevant configuration and files"
	}
}

func IsErrorType(err error, errorType ErrorType) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

func Wrap(err error, errorType ErrorType, message string) *Error {
	return NewWithCause(errorType, message, err)
}
