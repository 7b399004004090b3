package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrGeneration    = errors.New("generation error")
	ErrPrecondition  = errors.New("precondition error")
	ErrValidation    = errors.New("validation error")
	ErrState         = errors.New("state error")
	ErrNotFound      = errors.New("not found")
	ErrConfiguration = errors.New("configuration error")
)

// Kind names an error classification derived from the sentinel markers.
type Kind string

const (
	KindGeneration    Kind = "generation"
	KindPrecondition  Kind = "precondition"
	KindValidation    Kind = "validation"
	KindState         Kind = "state"
	KindNotFound      Kind = "not_found"
	KindConfiguration Kind = "configuration"
	KindUnknown       Kind = "unknown"
)

// Classify resolves the Kind for an error by matching the sentinel markers.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrGeneration):
		return KindGeneration
	case errors.Is(err, ErrPrecondition):
		return KindPrecondition
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrState):
		return KindState
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	default:
		return KindUnknown
	}
}

// Retryable reports whether retrying the same operation may succeed without
// the caller changing anything first. Only generation failures qualify.
func Retryable(err error) bool {
	return Classify(err) == KindGeneration
}

// classified carries stage context alongside the sentinel marker so Details
// can recover structured fields without parsing the message.
type classified struct {
	marker    error
	stage     string
	operation string
	message   string
	err       error
}

func (e *classified) Error() string {
	detail := buildDetail(e.stage, e.operation, e.message)
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %s", e.marker.Error(), detail, e.err.Error())
	}
	return fmt.Sprintf("%s: %s", e.marker.Error(), detail)
}

func (e *classified) Unwrap() []error {
	if e.err != nil {
		return []error{e.marker, e.err}
	}
	return []error{e.marker}
}

// Wrap builds an error that includes stage context while tagging it with the
// provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrGeneration
	}
	return &classified{
		marker:    marker,
		stage:     strings.TrimSpace(stage),
		operation: strings.TrimSpace(operation),
		message:   strings.TrimSpace(message),
		err:       err,
	}
}

// ErrorDetails exposes the structured fields captured by Wrap.
type ErrorDetails struct {
	Kind      Kind
	Stage     string
	Operation string
	Message   string
	Cause     error
}

// Details recovers structured failure information from an error chain. Errors
// not produced by Wrap still classify by sentinel but carry only the raw
// message.
func Details(err error) ErrorDetails {
	details := ErrorDetails{Kind: Classify(err)}
	if err == nil {
		return details
	}
	var wrapped *classified
	if errors.As(err, &wrapped) {
		details.Stage = wrapped.stage
		details.Operation = wrapped.operation
		details.Message = wrapped.message
		details.Cause = wrapped.err
		if details.Message == "" && wrapped.err != nil {
			details.Message = wrapped.err.Error()
		}
		return details
	}
	details.Message = strings.TrimSpace(err.Error())
	return details
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage != "" {
		parts = append(parts, stage)
	}
	if operation != "" {
		parts = append(parts, operation)
	}
	if message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
