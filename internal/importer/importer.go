// Package importer loads a directory tree of Markdown files into a wiki.
package importer

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"

	"mwiki/internal/content"
	"mwiki/internal/wiki"
)

type Result struct {
	Imported []string
	Skipped  []string
}

type options struct {
	skipExisting bool
}

type Option func(*options)

// SkipExisting leaves pages that are already stored untouched.
func SkipExisting() Option {
	return func(o *options) { o.skipExisting = true }
}

// Import walks root for *.md files and saves each one as a page authored by
// author. Front matter may set url, title and tags; other keys are kept as
// page metadata. Without a url the path relative to root, minus the
// extension, is cleaned into one.
func Import(ctx context.Context, w *wiki.Wiki, root, author string, opts ...Option) (Result, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	var res Result
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		doc := parseFile(filepath.ToSlash(rel), raw)
		url, err := safeURL(doc.url)
		if err != nil {
			slog.Warn("import: bad url, skipping", "path", rel, "url", doc.url, "err", err)
			res.Skipped = append(res.Skipped, rel)
			return nil
		}
		doc.url = url
		saved, err := save(ctx, w, doc, author, o.skipExisting)
		if err != nil {
			return fmt.Errorf("import %s: %w", rel, err)
		}
		if !saved {
			slog.Info("import: page exists, skipping", "path", rel, "url", doc.url)
			res.Skipped = append(res.Skipped, doc.url)
			return nil
		}
		slog.Debug("import: saved page", "path", rel, "url", doc.url)
		res.Imported = append(res.Imported, doc.url)
		return nil
	})
	return res, err
}

type importedDoc struct {
	url   string
	title string
	tags  string
	body  string
	extra map[string]string
}

func parseFile(rel string, raw []byte) importedDoc {
	doc := importedDoc{url: content.CleanURL(strings.TrimSuffix(rel, filepath.Ext(rel)))}
	var matter map[string]any
	body, err := frontmatter.Parse(bytes.NewReader(raw), &matter)
	if err != nil {
		slog.Warn("import: malformed front matter, using whole file", "path", rel, "err", err)
		doc.body = string(raw)
		return doc
	}
	doc.body = string(body)
	for key, value := range matter {
		switch strings.ToLower(key) {
		case "url":
			if u := content.CleanURL(stringValue(value, "/")); u != "" {
				doc.url = u
			}
		case "title":
			doc.title = stringValue(value, " ")
		case "tags":
			doc.tags = stringValue(value, ", ")
		default:
			if doc.extra == nil {
				doc.extra = make(map[string]string)
			}
			doc.extra[key] = stringValue(value, "\n")
		}
	}
	return doc
}

func stringValue(v any, sep string) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, part := range val {
			if s := stringValue(part, sep); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, sep)
	default:
		return fmt.Sprint(val)
	}
}

func save(ctx context.Context, w *wiki.Wiki, doc importedDoc, author string, skipExisting bool) (bool, error) {
	page, free, err := w.GetBare(ctx, doc.url)
	if err != nil {
		return false, err
	}
	if !free {
		if skipExisting {
			return false, nil
		}
		if page, err = w.GetOrNotFound(ctx, doc.url); err != nil {
			return false, err
		}
	}
	keys := make([]string, 0, len(doc.extra))
	for key := range doc.extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		page.Set(key, doc.extra[key])
	}
	if doc.title != "" {
		page.SetTitle(doc.title)
	}
	page.SetContent(doc.body)
	page.SetTags(doc.tags)
	if err := page.Save(ctx, author, false); err != nil {
		return false, err
	}
	return true, nil
}
