package blog

import (
	"regexp"
	"strings"
)

var (
	slugStrip      = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugWhitespace = regexp.MustCompile(`\s+`)
	slugHyphens    = regexp.MustCompile(`-+`)
)

// Slugify derives the URL-safe record key from a title.
//
// The title is lowercased, every character outside [a-z0-9], whitespace and
// '-' is removed, whitespace runs become a single hyphen, hyphen runs are
// collapsed and leading/trailing hyphens are trimmed. A title without any
// letter or digit yields "".
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = slugStrip.ReplaceAllString(s, "")
	s = slugWhitespace.ReplaceAllString(s, "-")
	s = slugHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// checkPathSlug validates a slug supplied by a caller rather than derived from a title.
func checkPathSlug(slug string) error {
	switch {
	case slug == "":
		return invalid("slug is required")
	case strings.ContainsAny(slug, `/\`), strings.Contains(slug, ".."):
		return invalid("invalid slug %q", slug)
	}
	return nil
}

// slugFromTitle derives a slug and rejects titles that produce an empty key.
func slugFromTitle(title string) (string, error) {
	slug := Slugify(title)
	if slug == "" {
		return "", invalid("title must contain at least one letter or digit")
	}
	return slug, nil
}
