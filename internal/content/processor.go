package content

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	gmmeta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

const DefaultHighlightStyle = "github"

// Result is the output of a full processing run.
type Result struct {
	HTML     string
	Markdown string
	Meta     *Meta
}

// Processor runs raw page text through preprocess, markdown conversion,
// metadata normalization and postprocess, always in that order.
// A Processor is safe for concurrent use once built.
type Processor struct {
	md   goldmark.Markdown
	pre  []func(string) string
	post []func(string) string
}

type options struct {
	style      string
	cssClasses bool
	unsafe     bool
	link       LinkFunc
	pre        []func(string) string
	post       []func(string) string
	postSet    bool
}

type Option func(*options)

func WithHighlightStyle(style string) Option {
	return func(o *options) { o.style = style }
}

// WithCSSClasses emits chroma CSS classes instead of inline styles.
func WithCSSClasses() Option {
	return func(o *options) { o.cssClasses = true }
}

// WithUnsafeHTML lets raw HTML in the source through to the output.
func WithUnsafeHTML() Option {
	return func(o *options) { o.unsafe = true }
}

// WithLinkFunc sets the href builder used by the default wikilink postprocessor.
func WithLinkFunc(fn LinkFunc) Option {
	return func(o *options) { o.link = fn }
}

func WithPreprocessors(fns ...func(string) string) Option {
	return func(o *options) { o.pre = append(o.pre, fns...) }
}

// WithPostprocessors replaces the default postprocessor list.
func WithPostprocessors(fns ...func(string) string) Option {
	return func(o *options) {
		o.post = append([]func(string) string(nil), fns...)
		o.postSet = true
	}
}

func NewProcessor(opts ...Option) *Processor {
	o := options{style: DefaultHighlightStyle, link: DisplayPath}
	for _, opt := range opts {
		opt(&o)
	}
	if styles.Get(o.style) == styles.Fallback && !strings.EqualFold(o.style, "swapoff") {
		slog.Warn("unknown highlight style, using fallback", "style", o.style)
	}

	rendererOptions := []goldmark.Option{}
	if o.unsafe {
		rendererOptions = append(rendererOptions, goldmark.WithRendererOptions(gmhtml.WithUnsafe()))
	}
	engineOptions := append([]goldmark.Option{
		goldmark.WithExtensions(
			extension.Table,
			gmmeta.Meta,
			highlighting.NewHighlighting(
				highlighting.WithStyle(o.style),
				highlighting.WithFormatOptions(chromahtml.WithClasses(o.cssClasses)),
			),
		),
	}, rendererOptions...)

	post := o.post
	if !o.postSet {
		post = []func(string) string{WikilinkProcessor(o.link)}
	}
	return &Processor{
		md:   goldmark.New(engineOptions...),
		pre:  o.pre,
		post: post,
	}
}

// Process never fails: conversion problems are logged and degrade to
// whatever output was produced, malformed metadata degrades to empty metadata.
func (p *Processor) Process(raw string) Result {
	pre := p.preprocess(raw)
	html, items, metaErr := p.convert(pre)
	meta := normalizeMeta(items, metaErr)
	return Result{
		HTML:     p.postprocess(html),
		Markdown: raw,
		Meta:     meta,
	}
}

func (p *Processor) preprocess(text string) string {
	current := text
	for _, fn := range p.pre {
		current = fn(current)
	}
	return current
}

type metaItem struct {
	key   any
	value any
}

// convert renders text and returns its front matter. A malformed front matter
// block is cut from the source and the rest rendered again, so neither the
// raw block nor the parser's error comment reaches the html.
func (p *Processor) convert(text string) (string, []metaItem, error) {
	html, ctx := p.render(text)
	slice, err := gmmeta.TryGetItems(ctx)
	if err != nil {
		html, _ = p.render(stripFrontMatter(text))
		return html, nil, err
	}
	items := make([]metaItem, 0, len(slice))
	for _, item := range slice {
		items = append(items, metaItem{key: item.Key, value: item.Value})
	}
	return html, items, nil
}

func (p *Processor) render(text string) (string, parser.Context) {
	ctx := parser.NewContext()
	var buf bytes.Buffer
	if err := p.md.Convert([]byte(text), &buf, parser.WithContext(ctx)); err != nil {
		slog.Warn("markdown convert", "err", err)
	}
	return buf.String(), ctx
}

// stripFrontMatter drops a leading "---" delimited block. Text without a
// closed block is returned unchanged.
func stripFrontMatter(text string) string {
	first, rest, ok := strings.Cut(text, "\n")
	if !ok || strings.TrimRight(first, " \t\r") != "---" {
		return text
	}
	for rest != "" {
		var line string
		line, rest, _ = strings.Cut(rest, "\n")
		if strings.TrimRight(line, " \t\r") == "---" {
			return rest
		}
	}
	return text
}

func normalizeMeta(items []metaItem, err error) *Meta {
	meta := NewMeta()
	if err != nil {
		slog.Warn("malformed page metadata, ignoring", "err", err)
		return meta
	}
	for _, item := range items {
		meta.Set(fmt.Sprint(item.key), metaValue(item.value))
	}
	return meta
}

func metaValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, part := range val {
			parts = append(parts, metaValue(part))
		}
		return strings.Join(parts, "\n")
	default:
		return fmt.Sprint(val)
	}
}

func (p *Processor) postprocess(html string) string {
	current := html
	for _, fn := range p.post {
		current = fn(current)
	}
	return current
}
