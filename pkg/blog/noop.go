package blog

import (
	"context"
	"log/slog"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) ArticlePublished(ctx context.Context, article *Article) error { return nil }

func (n *NoopEventSink) ArticleUpdated(ctx context.Context, oldSlug string, article *Article) error {
	return nil
}

func (n *NoopEventSink) ArticleDeleted(ctx context.Context, slug string) error { return nil }

func (n *NoopEventSink) DraftSaved(ctx context.Context, draft *Draft) error { return nil }

func (n *NoopEventSink) DraftDeleted(ctx context.Context, slug string) error { return nil }

func (n *NoopEventSink) DraftPublished(ctx context.Context, article *Article) error { return nil }

// LoggingEventSink is an event sink that logs events but takes no other action.
// Useful as an audit trail for the single operator.
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates a new logging event sink. A nil logger uses slog.Default().
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

func (l *LoggingEventSink) ArticlePublished(ctx context.Context, article *Article) error {
	l.logger.InfoContext(ctx, "Article published", "slug", article.Slug, "published_at", article.Metadata.PublishedAt)
	return nil
}

func (l *LoggingEventSink) ArticleUpdated(ctx context.Context, oldSlug string, article *Article) error {
	l.logger.InfoContext(ctx, "Article updated", "old_slug", oldSlug, "slug", article.Slug)
	return nil
}

func (l *LoggingEventSink) ArticleDeleted(ctx context.Context, slug string) error {
	l.logger.InfoContext(ctx, "Article deleted", "slug", slug)
	return nil
}

func (l *LoggingEventSink) DraftSaved(ctx context.Context, draft *Draft) error {
	l.logger.InfoContext(ctx, "Draft saved", "slug", draft.Slug, "saved_at", draft.Metadata.SavedAt)
	return nil
}

func (l *LoggingEventSink) DraftDeleted(ctx context.Context, slug string) error {
	l.logger.InfoContext(ctx, "Draft deleted", "slug", slug)
	return nil
}

func (l *LoggingEventSink) DraftPublished(ctx context.Context, article *Article) error {
	l.logger.InfoContext(ctx, "Draft published", "slug", article.Slug, "published_at", article.Metadata.PublishedAt)
	return nil
}
