package srvcerror

import "net/http"

type Error struct {
	errorCode  string
	msgToUser  string // public
	dbgInfoErr error  // private, for debugging

	httpStatus int // optional, for HTTP responses
}

func (e *Error) Error() string {
	return e.msgToUser
}

func (e *Error) ErrorCode() string {
	return e.errorCode
}

func (e *Error) DebugInfo() error {
	return e.dbgInfoErr
}

func (e *Error) SetDebug(err error) *Error {
	e.dbgInfoErr = err
	return e
}

func (e *Error) HttpStatusCode() int {
	if e.httpStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.httpStatus
}

func (e *Error) SetHttpStatusCode(code int) *Error {
	e.httpStatus = code
	return e
}

func New(errorCode string, msgToUser string) *Error {
	return &Error{
		errorCode: errorCode,
		msgToUser: msgToUser,
	}
}

const (
	ErrCodeValidation          = "validation_error"
	ErrCodeNotFound            = "not_found"
	ErrCodeConflict            = "conflict"
	ErrCodeResourceExhausted   = "resource_exhausted"
	ErrCodeUnauthorized        = "unauthorized"
	ErrCodeForbidden           = "forbidden"
	ErrCodeUpstream            = "upstream_error"
	ErrCodeInternalServerError = "internal_server_error"
)

func ErrValidation(msg string) *Error {
	return New(ErrCodeValidation, msg).
		SetHttpStatusCode(http.StatusUnprocessableEntity)
}

func ErrNotFound(msg string) *Error {
	return New(ErrCodeNotFound, msg).
		SetHttpStatusCode(http.StatusNotFound)
}

func ErrConflict(msg string) *Error {
	return New(ErrCodeConflict, msg).
		SetHttpStatusCode(http.StatusConflict)
}

func ErrResourceExhausted(msg string) *Error {
	return New(ErrCodeResourceExhausted, msg).
		SetHttpStatusCode(http.StatusLocked)
}

func ErrUnauthorized(msg string) *Error {
	return New(ErrCodeUnauthorized, msg).
		SetHttpStatusCode(http.StatusUnauthorized)
}

func ErrForbidden(msg string) *Error {
	return New(ErrCodeForbidden, msg).
		SetHttpStatusCode(http.StatusForbidden)
}

func ErrUpstream(msg string) *Error {
	return New(ErrCodeUpstream, msg).
		SetHttpStatusCode(http.StatusBadGateway)
}

func ErrInternalSE() *Error {
	return New(
		ErrCodeInternalServerError,
		"internal server error",
	).SetHttpStatusCode(http.StatusInternalServerError)
}
