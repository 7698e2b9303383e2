package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-blog/pkg/blog"
	"github.com/tendant/simple-blog/pkg/blog/config"
)

const testPassword = "letmein"

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	cfg, err := config.Load(
		config.WithEnvironment("testing"),
		config.WithAdminPassword(testPassword),
		config.WithSessionSecret(strings.Repeat("s", 32), 0),
		config.WithEventLogging(false),
	)
	require.NoError(t, err)

	store, closeStore, err := cfg.BuildStore(t.Context())
	require.NoError(t, err)
	t.Cleanup(closeStore)

	registry := prometheus.NewRegistry()
	metrics, err := blog.NewMetrics(registry)
	require.NoError(t, err)

	svc, err := cfg.BuildService(store, blog.WithMetrics(metrics))
	require.NoError(t, err)

	sessions, err := cfg.BuildSessions()
	require.NoError(t, err)

	return NewHTTPServer(cfg, svc, store, sessions, registry).Routes()
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func login(t *testing.T, h http.Handler) string {
	t.Helper()
	rr := doJSON(t, h, http.MethodPost, "/auth/admin", "", map[string]string{"password": testPassword})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestServer(t)

	for _, path := range []string{"/healthz", "/healthz/ready"} {
		rr := doJSON(t, h, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, "OK", rr.Body.String(), path)
	}
}

func TestPublishAndReadArticle(t *testing.T) {
	h := newTestServer(t)

	rr := doJSON(t, h, http.MethodPost, "/articles", "", map[string]string{
		"title": "Hello World", "summary": "s", "content": "c",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token := login(t, h)
	rr = doJSON(t, h, http.MethodPost, "/articles", token, map[string]string{
		"title": "Hello World", "summary": "s", "content": "c",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var written struct {
		Slug    string `json:"slug"`
		Version string `json:"version"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &written))
	assert.Equal(t, "hello-world", written.Slug)

	rr = doJSON(t, h, http.MethodGet, "/articles/hello-world", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `"`+written.Version+`"`, rr.Header().Get("ETag"))

	rr = doJSON(t, h, http.MethodGet, "/articles", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestDraftsRequireSession(t *testing.T) {
	h := newTestServer(t)

	rr := doJSON(t, h, http.MethodGet, "/drafts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doJSON(t, h, http.MethodGet, "/drafts", login(t, h), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t)

	doJSON(t, h, http.MethodGet, "/articles", "", nil)

	rr := doJSON(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "http_request_duration_seconds")
	assert.Contains(t, body, `handler="/articles"`)
	assert.Contains(t, body, "blog_store_operations_total")
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/articles/hello", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	req.Header.Set("Access-Control-Request-Headers", "If-Match")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "https://admin.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)
}
