// Package wiki is the page collection: lookups, moves, grouping and search
// over a document store.
package wiki

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"mwiki/internal/content"
	"mwiki/internal/store"
)

var defaultSearchAttrs = []string{"title", "tags", "body"}

// Wiki holds no state besides its collaborators; every call reads the store.
type Wiki struct {
	store store.Store
	proc  *content.Processor
}

func New(st store.Store, proc *content.Processor) *Wiki {
	return &Wiki{store: st, proc: proc}
}

func (w *Wiki) Processor() *content.Processor { return w.proc }

func (w *Wiki) Exists(ctx context.Context, url string) (bool, error) {
	n, err := w.store.Count(ctx, store.ByURL(url))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Get returns nil without error when url has no page.
func (w *Wiki) Get(ctx context.Context, url string) (*Page, error) {
	ok, err := w.Exists(ctx, url)
	if err != nil || !ok {
		return nil, err
	}
	return NewPage(ctx, w.store, w.proc, url)
}

func (w *Wiki) GetOrNotFound(ctx context.Context, url string) (*Page, error) {
	page, err := w.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, fmt.Errorf("%s: %w", url, ErrNotFound)
	}
	return page, nil
}

// GetBare returns a fresh draft and true when url is free, nil and false when
// a page already lives there.
func (w *Wiki) GetBare(ctx context.Context, url string) (*Page, bool, error) {
	ok, err := w.Exists(ctx, url)
	if err != nil {
		return nil, false, err
	}
	if ok {
		return nil, false, nil
	}
	return NewDraft(w.store, w.proc, url), true, nil
}

// GetAll lists the pages last saved by identity.
func (w *Wiki) GetAll(ctx context.Context, identity string) ([]*Page, error) {
	return w.find(ctx, store.Where("author", identity))
}

func (w *Wiki) SearchByAuthor(ctx context.Context, identity string) ([]*Page, error) {
	return w.find(ctx, store.Where("author", identity))
}

// Move rewrites the url of the page at oldURL. The existence check and the
// write are separate store calls; a concurrent move onto the same target is
// caught by the store's unique url constraint.
func (w *Wiki) Move(ctx context.Context, oldURL, newURL string) error {
	taken, err := w.Exists(ctx, newURL)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("move %s to %s: %w", oldURL, newURL, ErrTargetExists)
	}
	n, err := w.store.SetURL(ctx, oldURL, newURL)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("move %s: %w", oldURL, ErrNotFound)
	}
	return nil
}

func (w *Wiki) Delete(ctx context.Context, url string) (bool, error) {
	n, err := w.store.DeleteOne(ctx, store.ByURL(url))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Index materializes every stored page in store order.
func (w *Wiki) Index(ctx context.Context) ([]*Page, error) {
	return w.find(ctx, nil)
}

// IndexBy groups pages by attr, skipping pages where it is empty.
func (w *Wiki) IndexBy(ctx context.Context, attr string) (map[string][]*Page, error) {
	pages, err := w.Index(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]*Page)
	for _, page := range pages {
		value := page.Attr(attr)
		if value == "" {
			continue
		}
		out[value] = append(out[value], page)
	}
	return out, nil
}

// GetByTitle returns the raw stored record whose meta title equals title.
func (w *Wiki) GetByTitle(ctx context.Context, title string) (*store.Document, error) {
	doc, err := w.store.FindOne(ctx, store.Where("meta.title", title))
	if errors.Is(err, store.ErrNoDocument) {
		return nil, nil
	}
	return doc, err
}

func (w *Wiki) GetTags(ctx context.Context) (map[string][]*Page, error) {
	pages, err := w.Index(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]*Page)
	for _, page := range pages {
		for _, tag := range SplitTags(page.Tags()) {
			out[tag] = append(out[tag], page)
		}
	}
	return out, nil
}

// IndexByTag matches tag case-insensitively anywhere in the tags field, so
// "tag2" also finds pages tagged "tag22".
func (w *Wiki) IndexByTag(ctx context.Context, tag string) ([]*Page, error) {
	return w.find(ctx, store.Match("tags", regexp.QuoteMeta(tag), true))
}

type searchOptions struct {
	ignoreCase bool
	attrs      []string
}

type SearchOption func(*searchOptions)

func CaseSensitive() SearchOption {
	return func(o *searchOptions) { o.ignoreCase = false }
}

// InAttrs limits the search to the named attributes.
func InAttrs(attrs ...string) SearchOption {
	return func(o *searchOptions) { o.attrs = attrs }
}

// Search matches the regular expression term against each attribute in turn
// and returns every matching page once, in first-seen order.
func (w *Wiki) Search(ctx context.Context, term string, opts ...SearchOption) ([]*Page, error) {
	o := searchOptions{ignoreCase: true, attrs: defaultSearchAttrs}
	for _, opt := range opts {
		opt(&o)
	}
	if _, err := regexp.Compile(term); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}

	seen := make(map[string]bool)
	var out []*Page
	for _, attr := range o.attrs {
		docs, err := w.store.Find(ctx, store.Match(SearchField(attr), term, o.ignoreCase))
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			if seen[doc.URL] {
				continue
			}
			seen[doc.URL] = true
			out = append(out, pageFromDocument(w.store, w.proc, doc))
		}
	}
	return out, nil
}

// SearchField maps a search attribute name to the stored field it reads.
func SearchField(attr string) string {
	switch attr {
	case "title":
		return "meta.title"
	case "tags", "url", "author":
		return attr
	case "body", "content":
		return "content"
	}
	return "meta." + strings.ToLower(attr)
}

// SplitTags splits a comma separated tags field, dropping empty entries.
func SplitTags(tags string) []string {
	var out []string
	for _, tag := range strings.Split(tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func (w *Wiki) find(ctx context.Context, filter store.Filter) ([]*Page, error) {
	docs, err := w.store.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	pages := make([]*Page, 0, len(docs))
	for _, doc := range docs {
		pages = append(pages, pageFromDocument(w.store, w.proc, doc))
	}
	return pages, nil
}
