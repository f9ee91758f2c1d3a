// Package mcptools exposes read-only wiki queries as MCP tools.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"mwiki/internal/content"
	"mwiki/internal/wiki"
)

const Version = "0.1.0"

type SearchRequest struct {
	Term       string   `json:"term"`
	IgnoreCase *bool    `json:"ignore_case,omitempty"`
	Attrs      []string `json:"attrs,omitempty"`
}

type GetPageRequest struct {
	URL string `json:"url"`
}

type TagRequest struct {
	Tag string `json:"tag"`
}

type AuthorRequest struct {
	Author string `json:"author"`
}

type PageSummary struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags,omitempty"`
	Author    string    `json:"author,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PageDetail struct {
	PageSummary
	Content string        `json:"content"`
	HTML    string        `json:"html"`
	Meta    *content.Meta `json:"meta"`
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// NewServer registers the wiki tools. identity is the author used by
// pages_by_author when the caller names none.
func NewServer(w *wiki.Wiki, identity string) *server.MCPServer {
	s := server.NewMCPServer(
		"mwiki",
		Version,
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("search_pages",
		mcp.WithDescription("Search wiki pages with a regular expression over title, body and tags"),
		mcp.WithString("term",
			mcp.Required(),
			mcp.Description("Regular expression to search for"),
		),
		mcp.WithBoolean("ignore_case",
			mcp.Description("Match case-insensitively (default true)"),
		),
		mcp.WithArray("attrs",
			mcp.Description("Attributes to search, e.g. title, body, tags, author"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	), mcp.NewTypedToolHandler(searchHandler(w)))

	s.AddTool(mcp.NewTool("get_page",
		mcp.WithDescription("Get a wiki page with its markdown, rendered html and metadata"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Page url or title; it is cleaned the same way the editor does"),
		),
	), mcp.NewTypedToolHandler(getPageHandler(w)))

	s.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List every tag with the number of pages carrying it"),
	), listTagsHandler(w))

	s.AddTool(mcp.NewTool("pages_by_tag",
		mcp.WithDescription("List pages whose tags contain the given tag"),
		mcp.WithString("tag",
			mcp.Required(),
			mcp.Description("Tag to look for"),
		),
	), mcp.NewTypedToolHandler(pagesByTagHandler(w)))

	s.AddTool(mcp.NewTool("pages_by_author",
		mcp.WithDescription("List pages last saved by an author"),
		mcp.WithString("author",
			mcp.Description("Author name, defaults to the server identity"),
		),
	), mcp.NewTypedToolHandler(pagesByAuthorHandler(w, identity)))

	return s
}

func searchHandler(w *wiki.Wiki) func(context.Context, mcp.CallToolRequest, SearchRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, _ mcp.CallToolRequest, args SearchRequest) (*mcp.CallToolResult, error) {
		if args.Term == "" {
			return mcp.NewToolResultError("term is required"), nil
		}
		var opts []wiki.SearchOption
		if args.IgnoreCase != nil && !*args.IgnoreCase {
			opts = append(opts, wiki.CaseSensitive())
		}
		if len(args.Attrs) > 0 {
			opts = append(opts, wiki.InAttrs(args.Attrs...))
		}
		pages, err := w.Search(ctx, args.Term, opts...)
		if errors.Is(err, wiki.ErrInvalidPattern) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err != nil {
			return nil, err
		}
		return jsonResult(summaries(pages))
	}
}

func getPageHandler(w *wiki.Wiki) func(context.Context, mcp.CallToolRequest, GetPageRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, _ mcp.CallToolRequest, args GetPageRequest) (*mcp.CallToolResult, error) {
		url := content.CleanURL(args.URL)
		if url == "" {
			return mcp.NewToolResultError("url is required"), nil
		}
		page, err := w.GetOrNotFound(ctx, url)
		if errors.Is(err, wiki.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("page %q not found", url)), nil
		}
		if err != nil {
			return nil, err
		}
		return jsonResult(PageDetail{
			PageSummary: summary(page),
			Content:     page.Content(),
			HTML:        page.HTML(),
			Meta:        page.Meta(),
		})
	}
}

func listTagsHandler(w *wiki.Wiki) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tags, err := w.GetTags(ctx)
		if err != nil {
			return nil, err
		}
		return jsonResult(tagCounts(tags))
	}
}

func pagesByTagHandler(w *wiki.Wiki) func(context.Context, mcp.CallToolRequest, TagRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, _ mcp.CallToolRequest, args TagRequest) (*mcp.CallToolResult, error) {
		if args.Tag == "" {
			return mcp.NewToolResultError("tag is required"), nil
		}
		pages, err := w.IndexByTag(ctx, args.Tag)
		if err != nil {
			return nil, err
		}
		return jsonResult(summaries(pages))
	}
}

func pagesByAuthorHandler(w *wiki.Wiki, identity string) func(context.Context, mcp.CallToolRequest, AuthorRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, _ mcp.CallToolRequest, args AuthorRequest) (*mcp.CallToolResult, error) {
		author := args.Author
		if author == "" {
			author = identity
		}
		pages, err := w.SearchByAuthor(ctx, author)
		if err != nil {
			return nil, err
		}
		return jsonResult(summaries(pages))
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func summary(p *wiki.Page) PageSummary {
	return PageSummary{
		URL:       p.URL(),
		Title:     p.Title(),
		Tags:      wiki.SplitTags(p.Tags()),
		Author:    p.Author(),
		UpdatedAt: p.UpdatedAt(),
	}
}

func summaries(pages []*wiki.Page) []PageSummary {
	out := make([]PageSummary, 0, len(pages))
	for _, p := range pages {
		out = append(out, summary(p))
	}
	return out
}

func tagCounts(tags map[string][]*wiki.Page) []TagCount {
	out := make([]TagCount, 0, len(tags))
	for tag, pages := range tags {
		out = append(out, TagCount{Tag: tag, Count: len(pages)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}
