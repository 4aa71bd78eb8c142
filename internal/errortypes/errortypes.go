// Package errortypes provides the error taxonomy shared by the engine, the
// tool dispatcher and the REST layer.
package errortypes

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
)

// ErrorType represents the type of error that occurred
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeDatabase   ErrorType = "database"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeExternal   ErrorType = "external"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// AppError represents an application error with context. Message is safe
// to show to callers; Err carries the cause.
type AppError struct {
	Err       error
	Type      ErrorType
	Message   string
	StackInfo string
	Fields    map[string]any
}

func (e *AppError) Error() string {
	if e.Message != "" {
		if e.Err.Error() == e.Message {
			return e.Message
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithField adds a field to the error for additional context
func (e *AppError) WithField(key string, value any) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

// captureStack captures the stack trace at the call site
func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var builder strings.Builder
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "testing/") && !strings.Contains(frame.File, "/go/src/") {
			fmt.Fprintf(&builder, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		}
		if !more {
			break
		}
	}
	return builder.String()
}

func newAppError(errType ErrorType, err error, message string) *AppError {
	if err == nil {
		if message != "" {
			err = errors.New(message)
		} else {
			err = errors.New("unknown error")
		}
	}
	e := &AppError{
		Err:     err,
		Type:    errType,
		Message: message,
		Fields:  make(map[string]any),
	}
	// Caller mistakes do not need a trace.
	if errType != ErrorTypeValidation && errType != ErrorTypeNotFound {
		e.StackInfo = captureStack()
	}
	return e
}

func ValidationError(err error, message string) *AppError {
	return newAppError(ErrorTypeValidation, err, message)
}

// Validationf is a ValidationError whose message is also its cause.
func Validationf(format string, args ...any) *AppError {
	return newAppError(ErrorTypeValidation, nil, fmt.Sprintf(format, args...))
}

func NotFoundError(err error, message string) *AppError {
	return newAppError(ErrorTypeNotFound, err, message)
}

// ConflictError is reserved for uniqueness constraints.
func ConflictError(err error, message string) *AppError {
	return newAppError(ErrorTypeConflict, err, message)
}

func DatabaseError(err error, message string) *AppError {
	return newAppError(ErrorTypeDatabase, err, message)
}

func NetworkError(err error, message string) *AppError {
	return newAppError(ErrorTypeNetwork, err, message)
}

func ExternalError(err error, message string) *AppError {
	return newAppError(ErrorTypeExternal, err, message)
}

func ConfigError(err error, message string) *AppError {
	return newAppError(ErrorTypeConfig, err, message)
}

func InternalError(err error, message string) *AppError {
	return newAppError(ErrorTypeInternal, err, message)
}

// TypeOf returns the taxonomy type of err, internal for foreign errors.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// PublicMessage is the text returned to callers. Internal failures are not
// described beyond their type.
func PublicMessage(err error) string {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return "internal error"
	}
	switch appErr.Type {
	case ErrorTypeValidation, ErrorTypeNotFound, ErrorTypeConflict:
		if appErr.Message != "" {
			return appErr.Message
		}
		return appErr.Err.Error()
	}
	if appErr.Message != "" {
		return appErr.Message
	}
	return string(appErr.Type) + " error"
}

func IsValidationError(err error) bool {
	return TypeOf(err) == ErrorTypeValidation
}

func IsNotFoundError(err error) bool {
	return TypeOf(err) == ErrorTypeNotFound
}

func IsConflictError(err error) bool {
	return TypeOf(err) == ErrorTypeConflict
}

// HTTPStatus maps an error to the status code a REST caller receives.
func HTTPStatus(err error) int {
	switch TypeOf(err) {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeNetwork, ErrorTypeExternal:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// FromHTTPStatus rebuilds a taxonomy error from a REST response. errType is
// the error_type reported by the server and wins when it is recognised.
func FromHTTPStatus(status int, errType, message string) *AppError {
	switch ErrorType(errType) {
	case ErrorTypeValidation, ErrorTypeNotFound, ErrorTypeConflict, ErrorTypeDatabase,
		ErrorTypeNetwork, ErrorTypeExternal, ErrorTypeConfig, ErrorTypeInternal:
		return newAppError(ErrorType(errType), nil, message).WithField("status_code", status)
	}
	var t ErrorType
	switch {
	case status == http.StatusNotFound:
		t = ErrorTypeNotFound
	case status == http.StatusConflict:
		t = ErrorTypeConflict
	case status >= 400 && status < 500:
		t = ErrorTypeValidation
	default:
		t = ErrorTypeExternal
	}
	return newAppError(t, nil, message).WithField("status_code", status)
}

// LogError logs err with its type, stack and fields using logger or the
// default slog logger.
func LogError(logger *slog.Logger, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		args := []any{
			"type", string(appErr.Type),
			"original_error", appErr.Err.Error(),
		}
		if appErr.StackInfo != "" {
			args = append(args, "stack", appErr.StackInfo)
		}
		for k, v := range appErr.Fields {
			args = append(args, k, v)
		}
		msg := appErr.Message
		if msg == "" {
			msg = appErr.Err.Error()
		}
		logger.Error(msg, args...)
		return
	}
	logger.Error(err.Error(), "error", err)
}
