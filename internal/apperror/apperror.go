package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind — закрытый перечень видов ошибок движка. Каждая ошибка, видимая
// вызывающему, относится ровно к одному виду.
type Kind string

const (
	KindInvalidArgument Kind = "INVALID_ARGUMENT"
	KindNotFound        Kind = "NOT_FOUND"
	KindForbidden       Kind = "FORBIDDEN"
	KindConflict        Kind = "CONFLICT"
	KindQuotaExceeded   Kind = "QUOTA_EXCEEDED"
	KindInternal        Kind = "INTERNAL"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
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

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf возвращает вид ошибки. Любая ошибка вне таксономии считается
// KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus переводит вид ошибки в HTTP-статус. Используется только на
// транспортном уровне.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindQuotaExceeded:
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}
