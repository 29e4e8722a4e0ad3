package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind phân loại lỗi để tầng ngoài (HTTP, worker) map sang status/retry policy
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindConflict            Kind = "conflict"
	KindBadRequest          Kind = "bad_request"
	KindUnprocessableEntity Kind = "unprocessable_entity"
	KindValidation          Kind = "validation"
	KindConfiguration       Kind = "configuration"
	KindInternal            Kind = "internal"
)

// Error là typed error dùng chung cho toàn bộ core
type Error struct {
	Kind    Kind
	Code    string            // machine readable, e.g. INSUFFICIENT_STOCK
	Message string            // human readable
	Fields  map[string]string // field-level messages (validation only)
	Err     error             // wrapped cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New tạo error với kind + code + message
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap gắn kind cho một cause có sẵn
func Wrap(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// ===================================
// CONSTRUCTORS
// ===================================

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

func BadRequest(code, message string) *Error {
	return New(KindBadRequest, code, message)
}

func Unprocessable(code, message string) *Error {
	return New(KindUnprocessableEntity, code, message)
}

// Configuration is raised for programmer errors (bad identifiers, bad join
// types, missing soft-delete column) before any SQL executes.
func Configuration(format string, args ...any) *Error {
	return New(KindConfiguration, "CONFIGURATION_ERROR", fmt.Sprintf(format, args...))
}

func Internal(message string, err error) *Error {
	return Wrap(KindInternal, "INTERNAL_ERROR", message, err)
}

// Validation tạo lỗi validation với message theo từng field
func Validation(message string, fields map[string]string) *Error {
	e := New(KindValidation, "VALIDATION_ERROR", message)
	e.Fields = fields
	return e
}

// ===================================
// HELPERS
// ===================================

// KindOf trả về Kind của error đầu tiên trong chain, KindInternal nếu không có
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind checks whether err (or anything it wraps) is an *Error of kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// HTTPStatus map Kind sang HTTP status code cho response envelope bên ngoài
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindBadRequest, KindValidation:
		return http.StatusBadRequest
	case KindUnprocessableEntity:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
