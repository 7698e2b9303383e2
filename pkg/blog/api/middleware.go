package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/tendant/simple-blog/pkg/blog/auth"
)

// Middleware is a function that wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// DefaultMaxBodyBytes caps JSON request bodies
const DefaultMaxBodyBytes = 1 << 20

// RecoveryMiddleware recovers from panics and returns a 500 {message} body
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				slog.Error("Panic in handler",
					"request_id", middleware.GetReqID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"panic", rec,
				)
				writeMessage(w, r, http.StatusInternalServerError, "An internal server error occurred")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// NoCacheMiddleware marks responses as uncacheable so listings are always fresh
func NoCacheMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}

// RequestSizeLimitMiddleware limits the size of request bodies
func RequestSizeLimitMiddleware(maxBytes int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession rejects requests without a valid admin session token.
// A nil sessions value leaves the routes open.
func RequireSession(sessions *auth.Sessions) Middleware {
	if sessions == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	verify := sessions.Verifier()
	return func(next http.Handler) http.Handler {
		authenticate := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := auth.FromContext(r.Context()); err != nil {
				slog.Warn("Rejected unauthenticated request", "method", r.Method, "path", r.URL.Path, "error", err)
				writeMessage(w, r, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
		return verify(authenticate)
	}
}
