package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-blog/pkg/blog"
)

// DraftHandler handles HTTP requests for drafts. Every route requires a session.
type DraftHandler struct {
	service     blog.Service
	requireAuth Middleware
}

// NewDraftHandler creates a new draft handler
func NewDraftHandler(service blog.Service, requireAuth Middleware) *DraftHandler {
	if requireAuth == nil {
		requireAuth = func(next http.Handler) http.Handler { return next }
	}
	return &DraftHandler{service: service, requireAuth: requireAuth}
}

// Routes returns the routes for drafts
func (h *DraftHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.requireAuth)

	r.With(NoCacheMiddleware).Get("/", h.ListDrafts)
	r.Post("/", h.SaveDraft)
	r.Get("/{slug}", h.GetDraft)
	r.Put("/{slug}", h.UpdateDraft)
	r.Delete("/{slug}", h.DeleteDraft)
	r.Post("/{slug}", h.PublishDraft)

	return r
}

// ListDrafts returns every draft, most recently saved first
func (h *DraftHandler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := h.service.ListDrafts(r.Context())
	if err != nil {
		writeError(w, r, err, "Draft not found", "Failed to list drafts")
		return
	}
	if drafts == nil {
		drafts = []*blog.Draft{}
	}
	render.JSON(w, r, drafts)
}

// GetDraft returns a single draft by slug
func (h *DraftHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	draft, err := h.service.GetDraft(r.Context(), slug)
	if err != nil {
		writeError(w, r, err, "Draft not found", "Failed to fetch draft")
		return
	}

	setETag(w, draft.Version)
	render.JSON(w, r, draft)
}

// SaveDraft saves a new draft under the slug of its title
func (h *DraftHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	var req RecordRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		slog.Warn("Failed to decode request", "error", err)
		writeMessage(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.SaveDraft(r.Context(), blog.SaveDraftRequest{
		Title:   req.Title,
		Summary: req.Summary,
		Content: req.Content,
	})
	if err != nil {
		writeError(w, r, err, "Draft not found", "Failed to save draft")
		return
	}

	slog.Info("Draft saved", "slug", result.Slug)
	render.JSON(w, r, writeResponse("Draft saved successfully", result))
}

// UpdateDraft replaces a draft, moving it when the title's slug changes
func (h *DraftHandler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var req RecordRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		slog.Warn("Failed to decode request", "error", err)
		writeMessage(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.UpdateDraft(r.Context(), slug, blog.SaveDraftRequest{
		Title:           req.Title,
		Summary:         req.Summary,
		Content:         req.Content,
		ExpectedVersion: expectedVersion(r, req.Version),
	})
	if err != nil {
		writeError(w, r, err, "Draft not found", "Failed to update draft")
		return
	}

	slog.Info("Draft updated", "old_slug", slug, "slug", result.Slug)
	render.JSON(w, r, writeResponse("Draft updated successfully", result))
}

// DeleteDraft removes a draft. Deleting a missing draft succeeds.
func (h *DraftHandler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	if err := h.service.DeleteDraft(r.Context(), slug); err != nil {
		writeError(w, r, err, "Draft not found", "Failed to delete draft")
		return
	}

	slog.Info("Draft deleted", "slug", slug)
	render.JSON(w, r, MessageResponse{Message: "Draft deleted successfully"})
}

// PublishDraft moves a draft into the published articles
func (h *DraftHandler) PublishDraft(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	result, err := h.service.PublishDraft(r.Context(), slug)
	if err != nil {
		writeError(w, r, err, "Draft not found", "Failed to publish draft")
		return
	}

	slog.Info("Draft published", "slug", result.Slug)
	render.JSON(w, r, writeResponse("Draft published successfully", result))
}
