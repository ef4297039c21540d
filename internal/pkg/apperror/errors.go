package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest        ErrorCode = "BAD_REQUEST"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError     ErrorCode = "DATABASE_ERROR"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeDuplicateReview   ErrorCode = "DUPLICATE_REVIEW"
	ErrCodeTooManyRequests   ErrorCode = "TOO_MANY_REQUESTS"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду и сообщению, чтобы errors.Is работал с переменными пакета.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// Internal возвращает true для ошибок, детали которых нельзя показывать клиенту.
func (e *AppError) Internal() bool {
	return e.HTTPStatus >= http.StatusInternalServerError
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// Validation создаёт ошибку входных данных.
func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// Database оборачивает ошибку хранилища без раскрытия деталей клиенту.
func Database(err error, message string) *AppError {
	return Wrap(err, ErrCodeDatabaseError, message)
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeInvalidTransition, ErrCodeDuplicateReview:
		return http.StatusBadRequest
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// As извлекает AppError из цепочки ошибок.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode проверяет код AppError в цепочке ошибок.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

func IsNotFound(err error) bool {
	return HasCode(err, ErrCodeNotFound)
}

func IsInvalidTransition(err error) bool {
	return HasCode(err, ErrCodeInvalidTransition)
}

var (
	ErrReviewNotFound    = New(ErrCodeNotFound, "отзыв не найден")
	ErrUnauthorized      = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrNotReviewOwner    = New(ErrCodeUnauthorized, "изменять отзыв может только его автор")
	ErrNotReviewSubject  = New(ErrCodeForbidden, "ответить на отзыв может только получатель отзыва")
	ErrDuplicateReview   = New(ErrCodeDuplicateReview, "вы уже оставили отзыв на эту работу")
	ErrResponseExists    = New(ErrCodeConflict, "ответ на этот отзыв уже оставлен")
	ErrInvalidTransition = New(ErrCodeInvalidTransition, "недопустимый переход статуса отзыва")
	ErrInvalidStatus     = New(ErrCodeValidation, "некорректный статус модерации")
	ErrModeratorRequired = New(ErrCodeValidation, "не указан модератор")
	ErrInternal          = New(ErrCodeInternal, "внутренняя ошибка сервера")
)
