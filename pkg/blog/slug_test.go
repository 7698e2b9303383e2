package blog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tendant/simple-blog/pkg/blog"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		expected string
	}{
		{"punctuation and double spaces", "Hello, World!  Foo", "hello-world-foo"},
		{"simple title", "My First Post", "my-first-post"},
		{"already a slug", "my-first-post", "my-first-post"},
		{"leading and trailing hyphens", "--Go Tips--", "go-tips"},
		{"hyphen runs collapse", "a - - b", "a-b"},
		{"digits kept", "Top 10 Tools of 2024", "top-10-tools-of-2024"},
		{"underscores stripped", "snake_case_title", "snakecasetitle"},
		{"non ascii stripped", "Café Crème", "caf-crme"},
		{"tabs and newlines", "one\ttwo\nthree", "one-two-three"},
		{"only punctuation", "!!!", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, blog.Slugify(tt.title))
		})
	}
}

func TestSlugifyFixedPoint(t *testing.T) {
	titles := []string{"Hello, World!  Foo", "  Spaces  everywhere ", "MiXeD-CaSe -- Title", "v1.2.3 release notes"}
	for _, title := range titles {
		slug := blog.Slugify(title)
		assert.Equal(t, slug, blog.Slugify(slug), "slug of %q should be a fixed point", title)
	}
}

func TestRecordKeys(t *testing.T) {
	assert.Equal(t, "articles/hello.json", blog.ArticleKey("hello"))
	assert.Equal(t, "drafts/hello.json", blog.DraftKey("hello"))
}
