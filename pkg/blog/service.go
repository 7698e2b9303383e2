package blog

import (
	"context"
)

// Service defines the article and draft lifecycle operations
type Service interface {
	// Article operations
	ListArticles(ctx context.Context) ([]*Article, error)
	GetArticle(ctx context.Context, slug string) (*Article, error)
	PublishArticle(ctx context.Context, req PublishArticleRequest) (*WriteResult, error)
	EditArticle(ctx context.Context, slug string, req PublishArticleRequest) (*WriteResult, error)
	DeleteArticle(ctx context.Context, slug string) error

	// ImportArticle writes an article with a caller-chosen slug and publish date.
	// An empty PublishedAt defaults to the current date.
	ImportArticle(ctx context.Context, article *Article) (*WriteResult, error)

	// Draft operations
	ListDrafts(ctx context.Context) ([]*Draft, error)
	GetDraft(ctx context.Context, slug string) (*Draft, error)
	SaveDraft(ctx context.Context, req SaveDraftRequest) (*WriteResult, error)
	UpdateDraft(ctx context.Context, slug string, req SaveDraftRequest) (*WriteResult, error)
	DeleteDraft(ctx context.Context, slug string) error

	// PublishDraft moves a draft into the articles namespace. A missing draft
	// is ErrNotFound, so a completed move is never repeated.
	PublishDraft(ctx context.Context, slug string) (*WriteResult, error)
}
