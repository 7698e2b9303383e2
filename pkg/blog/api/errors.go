package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/simple-blog/pkg/blog"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Message string `json:"message"`
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, blog.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, blog.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, blog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, blog.ErrVersionConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and writes the matching status with a {message} body.
// Validation messages are returned verbatim; notFound and fallback are used
// for missing records and everything else.
func writeError(w http.ResponseWriter, r *http.Request, err error, notFound, fallback string) {
	status := statusFor(err)

	message := fallback
	switch status {
	case http.StatusBadRequest:
		message = validationMessage(err)
	case http.StatusNotFound:
		message = notFound
	case http.StatusConflict:
		message = "Record was modified by another request; reload and try again"
	case http.StatusUnauthorized:
		message = "Unauthorized"
	}

	if status >= http.StatusInternalServerError {
		slog.Error(fallback, "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		slog.Warn(message, "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}

	writeMessage(w, r, status, message)
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Message: message})
}

func validationMessage(err error) string {
	var verr *blog.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return err.Error()
}
