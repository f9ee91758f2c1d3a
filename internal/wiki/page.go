package wiki

import (
	"context"
	"errors"
	"time"

	"mwiki/internal/content"
	"mwiki/internal/store"
)

// Page is an ephemeral view of one stored document. Its url never changes;
// moving a page rewrites the stored document instead.
type Page struct {
	store store.Store
	proc  *content.Processor

	url       string
	content   string
	html      string
	own       *content.Meta // keys set on the page itself
	meta      *content.Meta // own overlaid with the rendered front matter
	tags      string
	author    string
	createdAt time.Time
	updatedAt time.Time
	isNew     bool
}

// NewPage binds a page to the document stored under url, loading and
// rendering it. A missing document yields an empty page.
func NewPage(ctx context.Context, st store.Store, proc *content.Processor, url string) (*Page, error) {
	p := &Page{store: st, proc: proc, url: url, own: content.NewMeta(), meta: content.NewMeta()}
	if err := p.Load(ctx); err != nil {
		return nil, err
	}
	p.Render()
	return p, nil
}

// NewDraft returns an unsaved page without touching the store.
func NewDraft(st store.Store, proc *content.Processor, url string) *Page {
	return &Page{store: st, proc: proc, url: url, own: content.NewMeta(), meta: content.NewMeta(), isNew: true}
}

func pageFromDocument(st store.Store, proc *content.Processor, doc store.Document) *Page {
	p := &Page{store: st, proc: proc, url: doc.URL}
	p.fill(doc)
	p.Render()
	return p
}

// Load replaces the in-memory state with the stored document. Absence resets
// the page to empty and is not an error.
func (p *Page) Load(ctx context.Context) error {
	doc, err := p.store.FindOne(ctx, store.ByURL(p.url))
	if errors.Is(err, store.ErrNoDocument) {
		p.fill(store.Document{URL: p.url})
		return nil
	}
	if err != nil {
		return err
	}
	p.fill(*doc)
	return nil
}

func (p *Page) fill(doc store.Document) {
	p.content = doc.Content
	p.html = doc.HTML
	p.meta = doc.Meta.Clone()
	if doc.PageMeta != nil {
		p.own = doc.PageMeta.Clone()
	} else {
		p.own = doc.Meta.Clone()
	}
	p.tags = doc.Tags
	p.author = doc.Author
	p.createdAt = doc.CreatedAt
	p.updatedAt = doc.UpdatedAt
}

// Render runs the processor only when no html is cached. The metadata is
// rebuilt from the page's own keys overlaid with the extracted front matter,
// so keys dropped from the front matter disappear.
func (p *Page) Render() {
	if p.html != "" {
		return
	}
	res := p.proc.Process(p.content)
	p.html = res.HTML
	p.meta = p.own.Clone()
	p.meta.Merge(res.Meta)
}

// Save upserts the page under its url, recording author as the last saver.
// Metadata is re-derived from the current content before writing, and the
// html cache is cleared afterwards; with refresh the page is reloaded and
// rendered so it mirrors what was persisted.
func (p *Page) Save(ctx context.Context, author string, refresh bool) error {
	p.html = ""
	p.Render()
	now := time.Now().UTC()
	doc := store.Document{
		URL:       p.url,
		Content:   p.content,
		Meta:      p.meta.Clone(),
		PageMeta:  p.own.Clone(),
		Tags:      p.tags,
		Author:    author,
		UpdatedAt: now,
	}
	if p.isNew {
		doc.CreatedAt = now
	}
	if err := p.store.Upsert(ctx, doc); err != nil {
		return err
	}
	p.isNew = false
	p.html = ""
	p.author = author
	p.updatedAt = now
	if !refresh {
		return nil
	}
	if err := p.Load(ctx); err != nil {
		return err
	}
	p.Render()
	return nil
}

func (p *Page) URL() string { return p.url }

func (p *Page) Content() string { return p.content }

// SetContent replaces the source text and drops the cached html.
func (p *Page) SetContent(text string) {
	p.content = text
	p.html = ""
}

func (p *Page) HTML() string { return p.html }

// Title falls back to the url only when no title key exists.
func (p *Page) Title() string {
	if title, ok := p.meta.Get("title"); ok {
		return title
	}
	return p.url
}

func (p *Page) SetTitle(title string) { p.Set("title", title) }

func (p *Page) Tags() string { return p.tags }

func (p *Page) SetTags(tags string) { p.tags = tags }

func (p *Page) Get(key string) (string, bool) { return p.meta.Get(key) }

// Set stores a page-owned key. Front matter still wins on the next render.
func (p *Page) Set(key, value string) {
	p.own.Set(key, value)
	p.meta.Set(key, value)
}

// Meta returns a copy of the page metadata.
func (p *Page) Meta() *content.Meta { return p.meta.Clone() }

func (p *Page) Author() string { return p.author }

func (p *Page) IsNew() bool { return p.isNew }

func (p *Page) CreatedAt() time.Time { return p.createdAt }

func (p *Page) UpdatedAt() time.Time { return p.updatedAt }

// Attr resolves a named attribute the way grouping and search name them.
func (p *Page) Attr(name string) string {
	switch name {
	case "url":
		return p.url
	case "title":
		return p.Title()
	case "tags":
		return p.tags
	case "author":
		return p.author
	case "body", "content":
		return p.content
	}
	v, _ := p.meta.Get(name)
	return v
}

// Excerpt is a plain text teaser of the rendered page.
func (p *Page) Excerpt(limit int) string {
	return content.Excerpt(p.html, limit)
}
