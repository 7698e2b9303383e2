package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tendant/simple-blog/pkg/blog"
)

func TestRecoveryMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("something went wrong")
	})

	wrapped := RecoveryMiddleware(handler)

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()

	assert.NotPanics(t, func() {
		wrapped.ServeHTTP(rr, req)
	})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"message":"An internal server error occurred"}`, rr.Body.String())
}

func TestNoCacheMiddleware(t *testing.T) {
	wrapped := NoCacheMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	wrapped.ServeHTTP(rr, httptest.NewRequest("GET", "/articles", nil))

	assert.Equal(t, "no-store, no-cache, must-revalidate, proxy-revalidate", rr.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", rr.Header().Get("Pragma"))
	assert.Equal(t, "0", rr.Header().Get("Expires"))
}

func TestRequestSizeLimitMiddleware(t *testing.T) {
	router, _, token := setupHandlerTest(t)
	limited := RequestSizeLimitMiddleware(64)(router)

	body := fmt.Sprintf(`{"title":"Big","summary":"s","content":%q}`, strings.Repeat("x", 200))
	req := httptest.NewRequest(http.MethodPost, "/articles", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	limited.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{&blog.ValidationError{Message: "bad"}, http.StatusBadRequest},
		{&blog.RecordError{Kind: "article", Slug: "x", Op: "get", Err: blog.ErrNotFound}, http.StatusNotFound},
		{fmt.Errorf("edit: %w", blog.ErrVersionConflict), http.StatusConflict},
		{blog.ErrUnauthorized, http.StatusUnauthorized},
		{&blog.StorageError{Key: "articles/x.json", Op: "upload", Err: errors.New("boom")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.expected, statusFor(tt.err))
		})
	}
}

func TestExpectedVersion(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/articles/x", nil)
	assert.Equal(t, "", expectedVersion(req, ""))
	assert.Equal(t, "body", expectedVersion(req, "body"))

	req.Header.Set("If-Match", `W/"abc123"`)
	assert.Equal(t, "abc123", expectedVersion(req, ""))

	req.Header.Set("If-Match", "*")
	assert.Equal(t, "", expectedVersion(req, ""))
}
