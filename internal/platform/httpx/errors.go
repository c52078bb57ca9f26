package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ledgerbook/ledgerbook/internal/shared"
)

type coded interface {
	Code() string
}

type withMeta interface {
	ProblemMeta() map[string]any
}

// StatusFor maps an error onto its HTTP status and title.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest, "Validation Failed"
	case errors.Is(err, shared.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, shared.ErrConflict):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, shared.ErrUnprocessable):
		return http.StatusUnprocessableEntity, "Unprocessable Entity"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}

// ProblemFor builds the problem document for err. Internal errors never leak
// their message.
func ProblemFor(err error) ProblemDetail {
	status, title := StatusFor(err)
	problem := ProblemDetail{Title: title, Status: status}
	if status == http.StatusInternalServerError {
		problem.Code = "InternalError"
		return problem
	}
	problem.Detail = err.Error()
	var c coded
	if errors.As(err, &c) {
		problem.Code = c.Code()
	}
	var m withMeta
	if errors.As(err, &m) {
		problem.Meta = m.ProblemMeta()
	}
	return problem
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	Problem(w, ProblemFor(err))
}

// Fail responds with the problem for err and logs server side failures.
func Fail(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	problem := ProblemFor(err)
	if problem.Status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	Problem(w, problem)
}
