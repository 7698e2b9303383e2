package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-blog/pkg/blog"
	"github.com/tendant/simple-blog/pkg/blog/auth"
	"github.com/tendant/simple-blog/pkg/blog/storage/memory"
)

const testPassword = "correct horse battery staple"

// setupHandlerTest creates a router over an in-memory service with sessions enabled
func setupHandlerTest(t *testing.T) (http.Handler, blog.Service, string) {
	t.Helper()

	service, err := blog.New(blog.WithBlobStore(memory.New()))
	require.NoError(t, err)

	sessions, err := auth.New(auth.Config{
		Password: testPassword,
		Secret:   bytes.Repeat([]byte("k"), 32),
		TTL:      time.Hour,
	})
	require.NoError(t, err)

	requireAuth := RequireSession(sessions)
	router := chi.NewRouter()
	router.Use(RecoveryMiddleware)
	router.Mount("/articles", NewArticleHandler(service, requireAuth).Routes())
	router.Mount("/drafts", NewDraftHandler(service, requireAuth).Routes())
	router.Mount("/auth", NewAuthHandler(sessions).Routes())

	session, err := sessions.Issue()
	require.NoError(t, err)

	return router, service, session.Token
}

func doRequest(t *testing.T, router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestDraftPublishScenario(t *testing.T) {
	router, _, token := setupHandlerTest(t)
	today := time.Now().UTC().Format(blog.PublishedAtLayout)

	w := doRequest(t, router, http.MethodPost, "/drafts", token, RecordRequest{Title: "My First Post", Content: "Hello"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	saved := decode[WriteResponse](t, w)
	assert.Equal(t, "my-first-post", saved.Slug)
	assert.Equal(t, "Draft saved successfully", saved.Message)
	assert.NotEmpty(t, saved.SavedAt)
	assert.NotEmpty(t, saved.URL)

	w = doRequest(t, router, http.MethodGet, "/drafts", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store, no-cache, must-revalidate, proxy-revalidate", w.Header().Get("Cache-Control"))
	drafts := decode[[]blog.Draft](t, w)
	require.Len(t, drafts, 1)
	assert.Equal(t, "my-first-post", drafts[0].Slug)
	assert.Equal(t, "draft", drafts[0].Metadata.Status)

	w = doRequest(t, router, http.MethodPost, "/drafts/my-first-post", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	published := decode[WriteResponse](t, w)
	assert.Equal(t, "my-first-post", published.Slug)
	assert.Equal(t, today, published.PublishedAt)
	assert.Equal(t, "Draft published successfully", published.Message)

	w = doRequest(t, router, http.MethodGet, "/drafts", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = doRequest(t, router, http.MethodGet, "/articles/my-first-post", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	article := decode[blog.Article](t, w)
	assert.Equal(t, "Hello", article.Content)
	assert.Equal(t, today, article.Metadata.PublishedAt)
	assert.Equal(t, `"`+article.Version+`"`, w.Header().Get("ETag"))
}

func TestArticleHandler_PublishEditDelete(t *testing.T) {
	router, _, token := setupHandlerTest(t)

	w := doRequest(t, router, http.MethodPost, "/articles", token, RecordRequest{Title: "Hello, World!  Foo", Summary: "s", Content: "c"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decode[WriteResponse](t, w)
	assert.Equal(t, "hello-world-foo", created.Slug)
	assert.Equal(t, "Article published successfully", created.Message)

	w = doRequest(t, router, http.MethodGet, "/articles", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-cache", w.Header().Get("Pragma"))
	assert.Equal(t, "0", w.Header().Get("Expires"))
	assert.Len(t, decode[[]blog.Article](t, w), 1)

	w = doRequest(t, router, http.MethodPut, "/articles/hello-world-foo", token, RecordRequest{Title: "Renamed", Summary: "s", Content: "c2", Version: created.Version})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	edited := decode[WriteResponse](t, w)
	assert.Equal(t, "renamed", edited.Slug)
	assert.Equal(t, "Article updated successfully", edited.Message)

	w = doRequest(t, router, http.MethodGet, "/articles/hello-world-foo", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Article not found", decode[ErrorResponse](t, w).Message)

	w = doRequest(t, router, http.MethodDelete, "/articles/renamed", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Article deleted successfully", decode[MessageResponse](t, w).Message)

	// deleting again is not an error
	w = doRequest(t, router, http.MethodDelete, "/articles/renamed", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestArticleHandler_Validation(t *testing.T) {
	router, _, token := setupHandlerTest(t)

	w := doRequest(t, router, http.MethodPost, "/articles", token, RecordRequest{Title: "No summary", Content: "c"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Title, summary, and content are required", decode[ErrorResponse](t, w).Message)

	w = doRequest(t, router, http.MethodPost, "/articles", token, RecordRequest{Title: "%%%", Summary: "s", Content: "c"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "title must contain at least one letter or digit", decode[ErrorResponse](t, w).Message)

	req := httptest.NewRequest(http.MethodPost, "/articles", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decode[ErrorResponse](t, rec).Message)
}

func TestArticleHandler_VersionConflict(t *testing.T) {
	router, _, token := setupHandlerTest(t)

	w := doRequest(t, router, http.MethodPost, "/articles", token, RecordRequest{Title: "Shared", Summary: "s", Content: "v1"})
	require.Equal(t, http.StatusOK, w.Code)
	stale := decode[WriteResponse](t, w).Version

	w = doRequest(t, router, http.MethodPut, "/articles/shared", token, RecordRequest{Title: "Shared", Summary: "s", Content: "v2", Version: stale})
	require.Equal(t, http.StatusOK, w.Code)

	data, err := json.Marshal(RecordRequest{Title: "Shared", Summary: "s", Content: "v3"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPut, "/articles/shared", bytes.NewReader(data))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("If-Match", `"`+stale+`"`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NotEmpty(t, decode[ErrorResponse](t, rec).Message)
}

func TestAuthRequired(t *testing.T) {
	router, _, _ := setupHandlerTest(t)

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"publish article", http.MethodPost, "/articles"},
		{"edit article", http.MethodPut, "/articles/x"},
		{"delete article", http.MethodDelete, "/articles/x"},
		{"list drafts", http.MethodGet, "/drafts"},
		{"get draft", http.MethodGet, "/drafts/x"},
		{"save draft", http.MethodPost, "/drafts"},
		{"publish draft", http.MethodPost, "/drafts/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, router, tt.method, tt.path, "", RecordRequest{Title: "t", Summary: "s", Content: "c"})
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "Unauthorized", decode[ErrorResponse](t, w).Message)

			w = doRequest(t, router, tt.method, tt.path, "not-a-token", RecordRequest{Title: "t", Summary: "s", Content: "c"})
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}

	// public reads stay open
	w := doRequest(t, router, http.MethodGet, "/articles", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHandler_Login(t *testing.T) {
	router, _, _ := setupHandlerTest(t)

	w := doRequest(t, router, http.MethodPost, "/auth/admin", "", LoginRequest{Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid password", decode[ErrorResponse](t, w).Message)

	w = doRequest(t, router, http.MethodPost, "/auth/admin", "", LoginRequest{Password: testPassword})
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[LoginResponse](t, w)
	assert.True(t, login.Success)
	assert.NotEmpty(t, login.Token)
	assert.True(t, login.ExpiresAt.After(time.Now()))

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	// the issued token opens the draft routes, by header or by cookie
	w = doRequest(t, router, http.MethodGet, "/drafts", login.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/drafts", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDraftHandler_GetAndUpdate(t *testing.T) {
	router, _, token := setupHandlerTest(t)

	w := doRequest(t, router, http.MethodGet, "/drafts/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Draft not found", decode[ErrorResponse](t, w).Message)

	w = doRequest(t, router, http.MethodPost, "/drafts", token, RecordRequest{Title: "Work In Progress", Content: "v1"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodGet, "/drafts/work-in-progress", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	draft := decode[blog.Draft](t, w)
	assert.Equal(t, "v1", draft.Content)

	w = doRequest(t, router, http.MethodPut, "/drafts/work-in-progress", token, RecordRequest{Title: "Done", Content: "v2", Version: draft.Version})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[WriteResponse](t, w)
	assert.Equal(t, "done", updated.Slug)
	assert.Equal(t, "Draft updated successfully", updated.Message)

	w = doRequest(t, router, http.MethodPost, "/drafts", token, RecordRequest{Title: "No content"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Title and content are required", decode[ErrorResponse](t, w).Message)

	w = doRequest(t, router, http.MethodDelete, "/drafts/done", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Draft deleted successfully", decode[MessageResponse](t, w).Message)

	w = doRequest(t, router, http.MethodPost, "/drafts/done", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDraftHandler_PublishWithoutDraft(t *testing.T) {
	router, _, token := setupHandlerTest(t)

	w := doRequest(t, router, http.MethodPost, "/articles", token, RecordRequest{Title: "Direct", Summary: "s", Content: "c"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(t, router, http.MethodPost, "/drafts/direct", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Draft not found", decode[ErrorResponse](t, w).Message)

	w = doRequest(t, router, http.MethodGet, "/articles/direct", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
