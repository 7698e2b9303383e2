// Package blog implements the article and draft lifecycle of a personal blog
// on top of a key-addressed blob store.
//
// Records are JSON blobs in two namespaces:
//
//	articles/<slug>.json  {"metadata":{"title","summary","publishedAt"},"content","slug"}
//	drafts/<slug>.json    {"metadata":{"title","summary","savedAt","status":"draft"},"content","slug"}
//
// A slug is derived from the title on every save, so renaming a record moves
// it to a new key and removes the old one. Publishing a draft moves it into
// the articles namespace; the move can be retried safely.
//
// Basic usage:
//
//	svc, err := blog.New(blog.WithBlobStore(memorystorage.New()))
//	res, err := svc.SaveDraft(ctx, blog.SaveDraftRequest{Title: "My First Post", Content: "Hello"})
//	res, err = svc.PublishDraft(ctx, res.Slug)
package blog
