package blog

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	kindArticle = "article"
	kindDraft   = "draft"
)

// service implements the Service interface
type service struct {
	store       BlobStore
	eventSink   EventSink
	metrics     *Metrics
	logger      *slog.Logger
	now         func() time.Time
	concurrency int
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithBlobStore sets the blob store holding articles and drafts
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.store = store
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithMetrics records store operations on the given metrics
func WithMetrics(m *Metrics) Option {
	return func(s *service) {
		s.metrics = m
	}
}

// WithLogger sets the logger used for swallowed failures
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithClock overrides the time source used for publishedAt and savedAt
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// WithFetchConcurrency caps parallel fetches during list operations. Zero or less means unlimited.
func WithFetchConcurrency(n int) Option {
	return func(s *service) {
		s.concurrency = n
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		eventSink: NewNoopEventSink(),
		now:       time.Now,
	}

	for _, option := range options {
		option(s)
	}

	if s.store == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.eventSink == nil {
		s.eventSink = NewNoopEventSink()
	}

	return s, nil
}

// Article operations

func (s *service) ListArticles(ctx context.Context) ([]*Article, error) {
	articles, err := fetchAll(ctx, s, kindArticle, ArticlesPrefix, func(a *Article, version string) {
		a.Version = version
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(articles, func(i, j int) bool {
		if articles[i].Metadata.PublishedAt != articles[j].Metadata.PublishedAt {
			return articles[i].Metadata.PublishedAt > articles[j].Metadata.PublishedAt
		}
		return articles[i].Slug < articles[j].Slug
	})
	return articles, nil
}

func (s *service) GetArticle(ctx context.Context, slug string) (*Article, error) {
	if err := checkPathSlug(slug); err != nil {
		return nil, err
	}

	var article Article
	version, err := s.readRecord(ctx, ArticleKey(slug), &article)
	if err != nil {
		return nil, recordErr(kindArticle, slug, "get", err)
	}
	article.Version = version
	return &article, nil
}

func (s *service) PublishArticle(ctx context.Context, req PublishArticleRequest) (*WriteResult, error) {
	if err := validateArticle(req); err != nil {
		return nil, err
	}
	slug, err := slugFromTitle(req.Title)
	if err != nil {
		return nil, err
	}

	article := &Article{
		Metadata: ArticleMetadata{
			Title:       req.Title,
			Summary:     req.Summary,
			PublishedAt: formatPublishedAt(s.now()),
		},
		Content: req.Content,
		Slug:    slug,
	}

	url, version, err := s.writeRecord(ctx, ArticleKey(slug), article)
	if err != nil {
		return nil, recordErr(kindArticle, slug, "publish", err)
	}
	article.Version = version

	if err := s.eventSink.ArticlePublished(ctx, article); err != nil {
		s.logger.Warn("Event sink failed", "event", "article_published", "slug", slug, "error", err)
	}

	return &WriteResult{Slug: slug, URL: url, Version: version, PublishedAt: article.Metadata.PublishedAt}, nil
}

func (s *service) EditArticle(ctx context.Context, oldSlug string, req PublishArticleRequest) (*WriteResult, error) {
	if err := checkPathSlug(oldSlug); err != nil {
		return nil, err
	}
	if err := validateArticle(req); err != nil {
		return nil, err
	}
	slug, err := slugFromTitle(req.Title)
	if err != nil {
		return nil, err
	}

	if req.ExpectedVersion != "" {
		if err := s.checkVersion(ctx, ArticleKey(oldSlug), req.ExpectedVersion); err != nil {
			return nil, recordErr(kindArticle, oldSlug, "edit", err)
		}
	}

	article := &Article{
		Metadata: ArticleMetadata{
			Title:       req.Title,
			Summary:     req.Summary,
			PublishedAt: formatPublishedAt(s.now()),
		},
		Content: req.Content,
		Slug:    slug,
	}

	url, version, err := s.writeRecord(ctx, ArticleKey(slug), article)
	if err != nil {
		return nil, recordErr(kindArticle, slug, "edit", err)
	}
	article.Version = version

	if slug != oldSlug {
		s.removeOrphan(ctx, kindArticle, ArticleKey(oldSlug))
	}

	if err := s.eventSink.ArticleUpdated(ctx, oldSlug, article); err != nil {
		s.logger.Warn("Event sink failed", "event", "article_updated", "slug", slug, "error", err)
	}

	return &WriteResult{Slug: slug, URL: url, Version: version, PublishedAt: article.Metadata.PublishedAt}, nil
}

func (s *service) DeleteArticle(ctx context.Context, slug string) error {
	if err := checkPathSlug(slug); err != nil {
		return err
	}
	if err := s.deleteKey(ctx, ArticleKey(slug)); err != nil {
		return recordErr(kindArticle, slug, "delete", err)
	}
	if err := s.eventSink.ArticleDeleted(ctx, slug); err != nil {
		s.logger.Warn("Event sink failed", "event", "article_deleted", "slug", slug, "error", err)
	}
	return nil
}

func (s *service) ImportArticle(ctx context.Context, article *Article) (*WriteResult, error) {
	if article == nil {
		return nil, invalid("article is required")
	}
	if err := checkPathSlug(article.Slug); err != nil {
		return nil, err
	}
	if article.Metadata.Title == "" {
		return nil, invalid("title is required")
	}

	publishedAt, err := normalizePublishedAt(article.Metadata.PublishedAt, s.now())
	if err != nil {
		return nil, err
	}

	record := &Article{
		Metadata: ArticleMetadata{
			Title:       article.Metadata.Title,
			Summary:     article.Metadata.Summary,
			PublishedAt: publishedAt,
		},
		Content: article.Content,
		Slug:    article.Slug,
	}

	url, version, err := s.writeRecord(ctx, ArticleKey(record.Slug), record)
	if err != nil {
		return nil, recordErr(kindArticle, record.Slug, "import", err)
	}
	record.Version = version

	if err := s.eventSink.ArticlePublished(ctx, record); err != nil {
		s.logger.Warn("Event sink failed", "event", "article_published", "slug", record.Slug, "error", err)
	}

	return &WriteResult{Slug: record.Slug, URL: url, Version: version, PublishedAt: publishedAt}, nil
}

// Draft operations

func (s *service) ListDrafts(ctx context.Context) ([]*Draft, error) {
	drafts, err := fetchAll(ctx, s, kindDraft, DraftsPrefix, func(d *Draft, version string) {
		d.Version = version
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(drafts, func(i, j int) bool {
		return drafts[i].Metadata.SavedAt > drafts[j].Metadata.SavedAt
	})
	return drafts, nil
}

func (s *service) GetDraft(ctx context.Context, slug string) (*Draft, error) {
	if err := checkPathSlug(slug); err != nil {
		return nil, err
	}

	var draft Draft
	version, err := s.readRecord(ctx, DraftKey(slug), &draft)
	if err != nil {
		return nil, recordErr(kindDraft, slug, "get", err)
	}
	draft.Version = version
	return &draft, nil
}

func (s *service) SaveDraft(ctx context.Context, req SaveDraftRequest) (*WriteResult, error) {
	if err := validateDraft(req); err != nil {
		return nil, err
	}
	slug, err := slugFromTitle(req.Title)
	if err != nil {
		return nil, err
	}

	draft := s.newDraft(slug, req)
	url, version, err := s.writeRecord(ctx, DraftKey(slug), draft)
	if err != nil {
		return nil, recordErr(kindDraft, slug, "save", err)
	}
	draft.Version = version

	if err := s.eventSink.DraftSaved(ctx, draft); err != nil {
		s.logger.Warn("Event sink failed", "event", "draft_saved", "slug", slug, "error", err)
	}

	return &WriteResult{Slug: slug, URL: url, Version: version, SavedAt: draft.Metadata.SavedAt}, nil
}

func (s *service) UpdateDraft(ctx context.Context, oldSlug string, req SaveDraftRequest) (*WriteResult, error) {
	if err := checkPathSlug(oldSlug); err != nil {
		return nil, err
	}
	if err := validateDraft(req); err != nil {
		return nil, err
	}
	slug, err := slugFromTitle(req.Title)
	if err != nil {
		return nil, err
	}

	if req.ExpectedVersion != "" {
		if err := s.checkVersion(ctx, DraftKey(oldSlug), req.ExpectedVersion); err != nil {
			return nil, recordErr(kindDraft, oldSlug, "update", err)
		}
	}

	draft := s.newDraft(slug, req)
	url, version, err := s.writeRecord(ctx, DraftKey(slug), draft)
	if err != nil {
		return nil, recordErr(kindDraft, slug, "update", err)
	}
	draft.Version = version

	if slug != oldSlug {
		s.removeOrphan(ctx, kindDraft, DraftKey(oldSlug))
	}

	if err := s.eventSink.DraftSaved(ctx, draft); err != nil {
		s.logger.Warn("Event sink failed", "event", "draft_saved", "slug", slug, "error", err)
	}

	return &WriteResult{Slug: slug, URL: url, Version: version, SavedAt: draft.Metadata.SavedAt}, nil
}

func (s *service) DeleteDraft(ctx context.Context, slug string) error {
	if err := checkPathSlug(slug); err != nil {
		return err
	}
	if err := s.deleteKey(ctx, DraftKey(slug)); err != nil {
		return recordErr(kindDraft, slug, "delete", err)
	}
	if err := s.eventSink.DraftDeleted(ctx, slug); err != nil {
		s.logger.Warn("Event sink failed", "event", "draft_deleted", "slug", slug, "error", err)
	}
	return nil
}

func (s *service) PublishDraft(ctx context.Context, slug string) (*WriteResult, error) {
	if err := checkPathSlug(slug); err != nil {
		return nil, err
	}
	articleKey := ArticleKey(slug)

	var draft Draft
	if _, err := s.readRecord(ctx, DraftKey(slug), &draft); err != nil {
		return nil, recordErr(kindDraft, slug, "publish", err)
	}

	article := &Article{
		Metadata: ArticleMetadata{
			Title:       draft.Metadata.Title,
			Summary:     draft.Metadata.Summary,
			PublishedAt: formatPublishedAt(s.now()),
		},
		Content: draft.Content,
		Slug:    slug,
	}

	var (
		existing Article
		url      string
		version  string
	)
	existingVersion, err := s.readRecord(ctx, articleKey, &existing)
	switch {
	case err == nil && sameArticle(&existing, article):
		// An earlier attempt today wrote the article but did not remove the draft.
		article = &existing
		version = existingVersion
		url = s.urlFor(ctx, articleKey)
	case err == nil || errors.Is(err, ErrObjectNotFound):
		url, version, err = s.writeRecord(ctx, articleKey, article)
		if err != nil {
			return nil, recordErr(kindArticle, slug, "publish", err)
		}
		if err := s.verifyWrite(ctx, articleKey, version); err != nil {
			return nil, recordErr(kindArticle, slug, "publish", err)
		}
	default:
		return nil, recordErr(kindArticle, slug, "publish", err)
	}
	article.Version = version

	if err := s.deleteKey(ctx, DraftKey(slug)); err != nil {
		return nil, recordErr(kindDraft, slug, "publish", err)
	}

	if err := s.eventSink.DraftPublished(ctx, article); err != nil {
		s.logger.Warn("Event sink failed", "event", "draft_published", "slug", slug, "error", err)
	}

	return &WriteResult{Slug: slug, URL: url, Version: version, PublishedAt: article.Metadata.PublishedAt}, nil
}

// Helper methods

func (s *service) newDraft(slug string, req SaveDraftRequest) *Draft {
	return &Draft{
		Metadata: DraftMetadata{
			Title:   req.Title,
			Summary: req.Summary,
			SavedAt: formatSavedAt(s.now()),
			Status:  DraftStatus,
		},
		Content: req.Content,
		Slug:    slug,
	}
}

// writeRecord encodes v as JSON and uploads it, returning the retrieval URL and version
func (s *service) writeRecord(ctx context.Context, key string, v interface{}) (string, string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode record: %w", err)
	}

	err = s.store.Upload(ctx, key, bytes.NewReader(data), UploadParams{MimeType: recordContentType})
	s.metrics.observeStoreOp("upload", err)
	if err != nil {
		return "", "", &StorageError{Key: key, Op: "upload", Err: err}
	}

	return s.urlFor(ctx, key), VersionOf(data), nil
}

// readRecord downloads and decodes the record at key, returning its version
func (s *service) readRecord(ctx context.Context, key string, v interface{}) (string, error) {
	data, err := s.readBytes(ctx, key)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return "", fmt.Errorf("failed to decode record %s: %w", key, err)
	}
	return VersionOf(data), nil
}

func (s *service) readBytes(ctx context.Context, key string) ([]byte, error) {
	reader, err := s.store.Download(ctx, key)
	s.metrics.observeStoreOp("download", err)
	if err != nil {
		return nil, &StorageError{Key: key, Op: "download", Err: err}
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// deleteKey deletes key, treating a missing object as already deleted
func (s *service) deleteKey(ctx context.Context, key string) error {
	err := s.store.Delete(ctx, key)
	if errors.Is(err, ErrObjectNotFound) {
		err = nil
	}
	s.metrics.observeStoreOp("delete", err)
	if err != nil {
		return &StorageError{Key: key, Op: "delete", Err: err}
	}
	return nil
}

// removeOrphan deletes the key left behind by a re-slug. Failures are logged, never returned.
func (s *service) removeOrphan(ctx context.Context, kind, key string) {
	if err := s.deleteKey(ctx, key); err != nil {
		s.logger.Warn("Failed to delete previous key, continuing", "kind", kind, "key", key, "error", err)
	}
}

func (s *service) urlFor(ctx context.Context, key string) string {
	url, err := s.store.GetURL(ctx, key)
	if err != nil {
		s.logger.Warn("Failed to resolve retrieval URL", "key", key, "error", err)
		return ""
	}
	return url
}

func (s *service) checkVersion(ctx context.Context, key, expected string) error {
	data, err := s.readBytes(ctx, key)
	if errors.Is(err, ErrObjectNotFound) {
		return fmt.Errorf("%w: %s no longer exists", ErrVersionConflict, key)
	}
	if err != nil {
		return err
	}
	if current := VersionOf(data); current != expected {
		return fmt.Errorf("%w: expected %s, found %s", ErrVersionConflict, expected, current)
	}
	return nil
}

func (s *service) verifyWrite(ctx context.Context, key, version string) error {
	data, err := s.readBytes(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPublishVerification, err)
	}
	if VersionOf(data) != version {
		return ErrPublishVerification
	}
	return nil
}

func (s *service) fetchLimit() int {
	if s.concurrency <= 0 {
		return -1
	}
	return s.concurrency
}

// fetchAll lists prefix and downloads every record in parallel. Records that
// fail to download or decode are logged and left out of the result.
func fetchAll[T any](ctx context.Context, s *service, kind, prefix string, setVersion func(*T, string)) ([]*T, error) {
	metas, err := s.store.List(ctx, prefix)
	s.metrics.observeStoreOp("list", err)
	if err != nil {
		return nil, &RecordError{Kind: kind, Op: "list", Err: err}
	}

	results := make([]*T, len(metas))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchLimit())
	for i, meta := range metas {
		g.Go(func() error {
			var record T
			version, err := s.readRecord(gctx, meta.Key, &record)
			if err != nil {
				s.logger.Warn("Failed to fetch record", "kind", kind, "key", meta.Key, "error", err)
				s.metrics.observeDropped(kind)
				return nil
			}
			setVersion(&record, version)
			results[i] = &record
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, &RecordError{Kind: kind, Op: "list", Err: err}
	}

	records := make([]*T, 0, len(results))
	for _, r := range results {
		if r != nil {
			records = append(records, r)
		}
	}
	return records, nil
}

// VersionOf returns the version token for stored record bytes
func VersionOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

func validateArticle(req PublishArticleRequest) error {
	if req.Title == "" || req.Summary == "" || req.Content == "" {
		return invalid("Title, summary, and content are required")
	}
	return nil
}

func validateDraft(req SaveDraftRequest) error {
	if req.Title == "" || req.Content == "" {
		return invalid("Title and content are required")
	}
	return nil
}

func sameArticle(a, b *Article) bool {
	return a.Slug == b.Slug &&
		a.Metadata.PublishedAt == b.Metadata.PublishedAt &&
		a.Metadata.Title == b.Metadata.Title &&
		a.Metadata.Summary == b.Metadata.Summary &&
		a.Content == b.Content
}

func normalizePublishedAt(value string, now time.Time) (string, error) {
	if value == "" {
		return formatPublishedAt(now), nil
	}
	for _, layout := range []string{PublishedAtLayout, time.RFC3339, SavedAtLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(PublishedAtLayout), nil
		}
	}
	return "", invalid("invalid publishedAt %q", value)
}

// recordErr wraps err for kind/slug; a missing object becomes ErrNotFound.
func recordErr(kind, slug, op string, err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return err
	}
	if errors.Is(err, ErrObjectNotFound) {
		err = ErrNotFound
	}
	return &RecordError{Kind: kind, Slug: slug, Op: op, Err: err}
}
