package blog

import (
	"time"
)

// Namespace prefixes inside the blob store
const (
	ArticlesPrefix = "articles/"
	DraftsPrefix   = "drafts/"

	recordExt         = ".json"
	recordContentType = "application/json"
)

// DraftStatus is the fixed status tag stored on every draft
const DraftStatus = "draft"

// Date and timestamp layouts used in stored records
const (
	PublishedAtLayout = "2006-01-02"
	SavedAtLayout     = "2006-01-02T15:04:05.000Z"
)

// ArticleMetadata is the metadata block of a published article
type ArticleMetadata struct {
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	PublishedAt string `json:"publishedAt"`
}

// Article is a published content record stored at articles/<slug>.json
type Article struct {
	Metadata ArticleMetadata `json:"metadata"`
	Content  string          `json:"content"`
	Slug     string          `json:"slug"`

	// Version is derived from the stored bytes on read and never persisted.
	Version string `json:"version,omitempty"`
}

// DraftMetadata is the metadata block of a draft
type DraftMetadata struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	SavedAt string `json:"savedAt"`
	Status  string `json:"status"`
}

// Draft is an unpublished content record stored at drafts/<slug>.json
type Draft struct {
	Metadata DraftMetadata `json:"metadata"`
	Content  string        `json:"content"`
	Slug     string        `json:"slug"`

	Version string `json:"version,omitempty"`
}

// PublishArticleRequest contains the fields for publishing or editing an article
type PublishArticleRequest struct {
	Title   string
	Summary string
	Content string

	// ExpectedVersion, when set on an edit, must match the stored version.
	ExpectedVersion string
}

// SaveDraftRequest contains the fields for saving or updating a draft
type SaveDraftRequest struct {
	Title   string
	Summary string
	Content string

	ExpectedVersion string
}

// WriteResult describes a record written to the blob store
type WriteResult struct {
	Slug        string
	URL         string
	Version     string
	SavedAt     string
	PublishedAt string
}

// ArticleKey returns the blob key of the article with the given slug
func ArticleKey(slug string) string {
	return ArticlesPrefix + slug + recordExt
}

// DraftKey returns the blob key of the draft with the given slug
func DraftKey(slug string) string {
	return DraftsPrefix + slug + recordExt
}

func formatPublishedAt(t time.Time) string {
	return t.UTC().Format(PublishedAtLayout)
}

func formatSavedAt(t time.Time) string {
	return t.UTC().Format(SavedAtLayout)
}
