// Package store defines the document store boundary shared by the wiki core
// and its backends.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"mwiki/internal/content"
)

// ErrNoDocument is returned by FindOne when nothing matches the filter.
var ErrNoDocument = errors.New("no document")

// Document is the stored record of a page. Meta is what queries see: the
// page's own keys overlaid with the front matter of Content. PageMeta holds
// only the keys set on the page itself; it is nil on records written before
// it existed.
type Document struct {
	ID        string        `json:"id"`
	URL       string        `json:"url"`
	Content   string        `json:"content"`
	HTML      string        `json:"html,omitempty"`
	Meta      *content.Meta `json:"meta"`
	PageMeta  *content.Meta `json:"page_meta,omitempty"`
	Tags      string        `json:"tags"`
	Author    string        `json:"author"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type Op int

const (
	Eq Op = iota
	Regex
)

func (o Op) String() string {
	switch o {
	case Eq:
		return "eq"
	case Regex:
		return "regex"
	default:
		return "unknown"
	}
}

// Cond matches one field. Field is a dotted path such as "meta.title".
// IgnoreCase only applies to Regex.
type Cond struct {
	Field      string
	Op         Op
	Value      string
	IgnoreCase bool
}

// Filter is a conjunction of conditions. The empty filter matches everything.
type Filter []Cond

func Where(field, value string) Filter {
	return Filter{{Field: field, Op: Eq, Value: value}}
}

func Match(field, pattern string, ignoreCase bool) Filter {
	return Filter{{Field: field, Op: Regex, Value: pattern, IgnoreCase: ignoreCase}}
}

func ByURL(url string) Filter {
	return Where("url", url)
}

// And returns a filter holding the conditions of f followed by more.
func (f Filter) And(more ...Cond) Filter {
	out := make(Filter, 0, len(f)+len(more))
	out = append(out, f...)
	return append(out, more...)
}

// Path splits a dotted field into its segments.
func (c Cond) Path() []string {
	return strings.Split(c.Field, ".")
}

type Store interface {
	Count(ctx context.Context, filter Filter) (int64, error)
	FindOne(ctx context.Context, filter Filter) (*Document, error)
	// Find returns matches in insertion order.
	Find(ctx context.Context, filter Filter) ([]Document, error)
	// Upsert writes doc keyed by URL. An existing record keeps its ID and
	// CreatedAt; the cached HTML is replaced by doc.HTML.
	Upsert(ctx context.Context, doc Document) error
	SetURL(ctx context.Context, oldURL, newURL string) (int64, error)
	DeleteOne(ctx context.Context, filter Filter) (int64, error)
	Close() error
}
