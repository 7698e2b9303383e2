// Package migrate imports Markdown articles with YAML front matter into the blob store.
//
// Each file content/<name>.mdx (or .md) becomes articles/<name>.json with the
// title, summary and publishedAt taken from its front matter and the Markdown
// body stored verbatim as content.
package migrate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tendant/simple-blog/pkg/blog"
	"gopkg.in/yaml.v3"
)

const frontMatterDelimiter = "---"

// DefaultExtensions are the file extensions imported when none are given
var DefaultExtensions = []string{".mdx", ".md"}

// FrontMatter is the YAML header of an article file
type FrontMatter struct {
	Title       string `yaml:"title"`
	Summary     string `yaml:"summary"`
	PublishedAt string `yaml:"publishedAt"`
}

// Result is the outcome of importing one file
type Result struct {
	File        string
	Slug        string
	URL         string
	PublishedAt string
	Err         error
}

// Report collects per-file results of a run
type Report struct {
	Results []Result
}

// Succeeded returns the number of imported files
func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the results that could not be imported
func (r *Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Migrator imports a directory of article files
type Migrator struct {
	service    blog.Service
	logger     *slog.Logger
	extensions []string
}

// Option configures a Migrator
type Option func(*Migrator)

// WithLogger sets the logger used for per-file progress
func WithLogger(logger *slog.Logger) Option {
	return func(m *Migrator) {
		m.logger = logger
	}
}

// WithExtensions overrides the imported file extensions
func WithExtensions(exts ...string) Option {
	return func(m *Migrator) {
		m.extensions = exts
	}
}

// New creates a Migrator writing through service
func New(service blog.Service, opts ...Option) *Migrator {
	m := &Migrator{
		service:    service,
		logger:     slog.Default(),
		extensions: DefaultExtensions,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run imports every matching file directly under dir. A failing file is
// recorded in the report and does not stop the run; the returned error is
// only set when dir itself cannot be read.
func (m *Migrator) Run(ctx context.Context, dir string) (*Report, error) {
	files, err := m.findFiles(dir)
	if err != nil {
		return nil, err
	}

	m.logger.Info("Found articles to migrate", "dir", dir, "count", len(files))

	report := &Report{}
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result := m.importFile(ctx, filepath.Join(dir, name))
		if result.Err != nil {
			m.logger.Error("Failed to migrate article", "file", name, "error", result.Err)
		} else {
			m.logger.Info("Migrated article", "file", name, "slug", result.Slug, "published_at", result.PublishedAt, "url", result.URL)
		}
		report.Results = append(report.Results, result)
	}

	m.logger.Info("Migration completed", "succeeded", report.Succeeded(), "failed", len(report.Failed()))
	return report, nil
}

func (m *Migrator) findFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read content directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if m.matches(entry.Name()) {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func (m *Migrator) matches(name string) bool {
	ext := filepath.Ext(name)
	for _, e := range m.extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

func (m *Migrator) importFile(ctx context.Context, path string) Result {
	name := filepath.Base(path)
	slug := strings.TrimSuffix(name, filepath.Ext(name))
	result := Result{File: name, Slug: slug}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Err = err
		return result
	}

	fm, body, err := ParseDocument(data)
	if err != nil {
		result.Err = err
		return result
	}

	written, err := m.service.ImportArticle(ctx, &blog.Article{
		Metadata: blog.ArticleMetadata{
			Title:       fm.Title,
			Summary:     fm.Summary,
			PublishedAt: fm.PublishedAt,
		},
		Content: body,
		Slug:    slug,
	})
	if err != nil {
		result.Err = err
		return result
	}

	result.URL = written.URL
	result.PublishedAt = written.PublishedAt
	return result
}

// ParseDocument splits a Markdown document into its front matter and body
func ParseDocument(data []byte) (FrontMatter, string, error) {
	var fm FrontMatter

	content := string(bytes.TrimPrefix(data, []byte("\ufeff")))
	if !strings.HasPrefix(content, frontMatterDelimiter) {
		return fm, content, errors.New("missing front matter")
	}

	start := len(frontMatterDelimiter)
	if len(content) > start && content[start] == '\r' {
		start++
	}
	if len(content) > start && content[start] == '\n' {
		start++
	}

	closeIdx := strings.Index(content[start:], "\n"+frontMatterDelimiter)
	if closeIdx == -1 {
		return fm, content, errors.New("no closing front matter delimiter")
	}

	header := content[start : start+closeIdx]

	bodyStart := start + closeIdx + 1 + len(frontMatterDelimiter)
	for bodyStart < len(content) && (content[bodyStart] == '\n' || content[bodyStart] == '\r') {
		bodyStart++
	}
	body := ""
	if bodyStart < len(content) {
		body = content[bodyStart:]
	}

	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return fm, content, fmt.Errorf("parse YAML front matter: %w", err)
	}
	return fm, body, nil
}
