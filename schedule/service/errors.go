package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/wricardo/course-scheduler/schedule/catalog"
	"github.com/wricardo/course-scheduler/schedule/document"
	"github.com/wricardo/course-scheduler/schedule/pool"
	"github.com/wricardo/course-scheduler/schedule/session"
)

// Code classifies an error for transports
type Code string

const (
	CodeIllegalState    Code = "illegal_state"
	CodeInvalidArgument Code = "invalid_argument"
	CodeConflict        Code = "conflict"
	CodeNotFound        Code = "not_found"
	CodeCanceled        Code = "canceled"
	CodeInternal        Code = "internal"
)

// ErrInvalidArgument reports malformed transport input
var ErrInvalidArgument = errors.New("invalid argument")

// ErrorCode returns the code of err, or "" for nil
func ErrorCode(err error) Code {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, session.ErrIllegalState):
		return CodeIllegalState
	case errors.Is(err, document.ErrNameTaken),
		errors.Is(err, document.ErrCourseAlreadySelected):
		return CodeConflict
	case errors.Is(err, document.ErrInvalidName),
		errors.Is(err, catalog.ErrCourseNotFound),
		errors.Is(err, pool.ErrInvalidScheduleID),
		errors.Is(err, session.ErrInvalidClient),
		errors.Is(err, ErrInvalidArgument):
		return CodeInvalidArgument
	case errors.Is(err, session.ErrClientNotFound),
		errors.Is(err, pool.ErrScheduleNotFound),
		errors.Is(err, catalog.ErrCatalogNotFound),
		errors.Is(err, document.ErrCourseNotSelected):
		return CodeNotFound
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return CodeCanceled
	default:
		return CodeInternal
	}
}

// HTTPStatus returns the HTTP status code for an error code
func HTTPStatus(code Code) int {
	switch code {
	case "":
		return http.StatusOK
	case CodeIllegalState, CodeConflict:
		return http.StatusConflict
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// AvailableNames returns the names still free when err is a name conflict
func AvailableNames(err error) []string {
	var conflict *document.NameConflictError
	if errors.As(err, &conflict) {
		return conflict.Available
	}
	return nil
}
