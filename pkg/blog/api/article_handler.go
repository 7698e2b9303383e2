package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-blog/pkg/blog"
)

// RecordRequest is the request body for publishing, editing and saving records
type RecordRequest struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Content string `json:"content"`

	// Version is the version the caller last read. The If-Match header is used when empty.
	Version string `json:"version,omitempty"`
}

// WriteResponse is the response body for successful writes
type WriteResponse struct {
	Message     string `json:"message"`
	Slug        string `json:"slug"`
	URL         string `json:"url"`
	Version     string `json:"version"`
	SavedAt     string `json:"savedAt,omitempty"`
	PublishedAt string `json:"publishedAt,omitempty"`
}

// MessageResponse is the response body for successful deletes
type MessageResponse struct {
	Message string `json:"message"`
}

// ArticleHandler handles HTTP requests for published articles
type ArticleHandler struct {
	service     blog.Service
	requireAuth Middleware
}

// NewArticleHandler creates a new article handler. Writes go through requireAuth.
func NewArticleHandler(service blog.Service, requireAuth Middleware) *ArticleHandler {
	if requireAuth == nil {
		requireAuth = func(next http.Handler) http.Handler { return next }
	}
	return &ArticleHandler{service: service, requireAuth: requireAuth}
}

// Routes returns the routes for articles
func (h *ArticleHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(NoCacheMiddleware).Get("/", h.ListArticles)
	r.Get("/{slug}", h.GetArticle)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/", h.PublishArticle)
		r.Put("/{slug}", h.EditArticle)
		r.Delete("/{slug}", h.DeleteArticle)
	})

	return r
}

// ListArticles returns every published article, newest first
func (h *ArticleHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := h.service.ListArticles(r.Context())
	if err != nil {
		writeError(w, r, err, "Article not found", "Failed to fetch articles")
		return
	}
	if articles == nil {
		articles = []*blog.Article{}
	}
	render.JSON(w, r, articles)
}

// GetArticle returns a single article by slug
func (h *ArticleHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	article, err := h.service.GetArticle(r.Context(), slug)
	if err != nil {
		writeError(w, r, err, "Article not found", "Failed to fetch article")
		return
	}

	setETag(w, article.Version)
	render.JSON(w, r, article)
}

// PublishArticle publishes a new article under the slug of its title
func (h *ArticleHandler) PublishArticle(w http.ResponseWriter, r *http.Request) {
	var req RecordRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		slog.Warn("Failed to decode request", "error", err)
		writeMessage(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.PublishArticle(r.Context(), blog.PublishArticleRequest{
		Title:   req.Title,
		Summary: req.Summary,
		Content: req.Content,
	})
	if err != nil {
		writeError(w, r, err, "Article not found", "Failed to publish article")
		return
	}

	slog.Info("Article published", "slug", result.Slug)
	render.JSON(w, r, writeResponse("Article published successfully", result))
}

// EditArticle replaces an article, moving it when the title's slug changes
func (h *ArticleHandler) EditArticle(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var req RecordRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		slog.Warn("Failed to decode request", "error", err)
		writeMessage(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.EditArticle(r.Context(), slug, blog.PublishArticleRequest{
		Title:           req.Title,
		Summary:         req.Summary,
		Content:         req.Content,
		ExpectedVersion: expectedVersion(r, req.Version),
	})
	if err != nil {
		writeError(w, r, err, "Article not found", "Failed to update article")
		return
	}

	slog.Info("Article updated", "old_slug", slug, "slug", result.Slug)
	render.JSON(w, r, writeResponse("Article updated successfully", result))
}

// DeleteArticle removes an article. Deleting a missing article succeeds.
func (h *ArticleHandler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	if err := h.service.DeleteArticle(r.Context(), slug); err != nil {
		writeError(w, r, err, "Article not found", "Failed to delete article")
		return
	}

	slog.Info("Article deleted", "slug", slug)
	render.JSON(w, r, MessageResponse{Message: "Article deleted successfully"})
}

func writeResponse(message string, result *blog.WriteResult) WriteResponse {
	return WriteResponse{
		Message:     message,
		Slug:        result.Slug,
		URL:         result.URL,
		Version:     result.Version,
		SavedAt:     result.SavedAt,
		PublishedAt: result.PublishedAt,
	}
}

// expectedVersion prefers the body version and falls back to If-Match
func expectedVersion(r *http.Request, bodyVersion string) string {
	if bodyVersion != "" {
		return bodyVersion
	}
	v := strings.TrimSpace(r.Header.Get("If-Match"))
	if v == "*" {
		return ""
	}
	v = strings.TrimPrefix(v, "W/")
	return strings.Trim(v, `"`)
}

func setETag(w http.ResponseWriter, version string) {
	if version != "" {
		w.Header().Set("ETag", `"`+version+`"`)
	}
}
