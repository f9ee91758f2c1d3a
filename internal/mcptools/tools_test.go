package mcptools

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mark3labs/mcp-go/mcp"

	"mwiki/internal/content"
	"mwiki/internal/store/sqlite"
	"mwiki/internal/wiki"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn})))
	os.Exit(m.Run())
}

func newTestWiki(t *testing.T) *wiki.Wiki {
	t.Helper()
	st, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "pages.sqlite"), sqlite.Options{
		BusyTimeout: time.Second,
		LockTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	w := wiki.New(st, content.NewProcessor())
	for _, p := range []struct{ url, title, body, tags, author string }{
		{"go/intro", "Go Intro", "Learn about goroutines", "go, lang", "ann"},
		{"rust", "Rust", "ownership and borrowing", "lang", "bob"},
	} {
		page, _, err := w.GetBare(context.Background(), p.url)
		if err != nil {
			t.Fatalf("get bare: %v", err)
		}
		page.SetTitle(p.title)
		page.SetContent(p.body)
		page.SetTags(p.tags)
		if err := page.Save(context.Background(), p.author, false); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	return w
}

func callRequest(name string, args any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Request: mcp.Request{Method: "tools/call"},
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatalf("empty result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func urlsOf(t *testing.T, result *mcp.CallToolResult) []string {
	t.Helper()
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	var pages []PageSummary
	if err := json.Unmarshal([]byte(resultText(t, result)), &pages); err != nil {
		t.Fatalf("decode: %v", err)
	}
	urls := []string{}
	for _, p := range pages {
		urls = append(urls, p.URL)
	}
	return urls
}

func TestNewServer(t *testing.T) {
	if NewServer(newTestWiki(t), "ann") == nil {
		t.Fatal("NewServer() returned nil")
	}
}

func TestSearchPages(t *testing.T) {
	w := newTestWiki(t)
	handler := searchHandler(w)
	ctx := context.Background()

	args := SearchRequest{Term: "GOROUTINE"}
	result, err := handler(ctx, callRequest("search_pages", args), args)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if diff := cmp.Diff([]string{"go/intro"}, urlsOf(t, result)); diff != "" {
		t.Fatalf("urls mismatch (-want +got):\n%s", diff)
	}

	sensitive := false
	args = SearchRequest{Term: "GOROUTINE", IgnoreCase: &sensitive}
	result, err = handler(ctx, callRequest("search_pages", args), args)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got := urlsOf(t, result); len(got) != 0 {
		t.Fatalf("expected no case sensitive match, got %v", got)
	}

	args = SearchRequest{Term: "lang", Attrs: []string{"tags"}}
	result, err = handler(ctx, callRequest("search_pages", args), args)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if diff := cmp.Diff([]string{"go/intro", "rust"}, urlsOf(t, result)); diff != "" {
		t.Fatalf("urls mismatch (-want +got):\n%s", diff)
	}

	args = SearchRequest{Term: "("}
	result, err = handler(ctx, callRequest("search_pages", args), args)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected tool error for invalid pattern")
	}
}

func TestGetPage(t *testing.T) {
	handler := getPageHandler(newTestWiki(t))
	ctx := context.Background()

	args := GetPageRequest{URL: "Go/Intro"}
	result, err := handler(ctx, callRequest("get_page", args), args)
	if err != nil {
		t.Fatalf("get page: %v", err)
	}
	var detail PageDetail
	if err := json.Unmarshal([]byte(resultText(t, result)), &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if detail.URL != "go/intro" || detail.Title != "Go Intro" || detail.Content != "Learn about goroutines" {
		t.Fatalf("unexpected detail %+v", detail)
	}
	if diff := cmp.Diff([]string{"go", "lang"}, detail.Tags); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}

	args = GetPageRequest{URL: "missing"}
	result, err = handler(ctx, callRequest("get_page", args), args)
	if err != nil {
		t.Fatalf("get page: %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected tool error for missing page")
	}
}

func TestListTags(t *testing.T) {
	handler := listTagsHandler(newTestWiki(t))
	result, err := handler(context.Background(), callRequest("list_tags", nil))
	if err != nil {
		t.Fatalf("list tags: %v", err)
	}
	var tags []TagCount
	if err := json.Unmarshal([]byte(resultText(t, result)), &tags); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []TagCount{{Tag: "lang", Count: 2}, {Tag: "go", Count: 1}}
	if diff := cmp.Diff(want, tags); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestPagesByTagAndAuthor(t *testing.T) {
	w := newTestWiki(t)
	ctx := context.Background()

	tagArgs := TagRequest{Tag: "GO"}
	result, err := pagesByTagHandler(w)(ctx, callRequest("pages_by_tag", tagArgs), tagArgs)
	if err != nil {
		t.Fatalf("pages by tag: %v", err)
	}
	if diff := cmp.Diff([]string{"go/intro"}, urlsOf(t, result)); diff != "" {
		t.Fatalf("urls mismatch (-want +got):\n%s", diff)
	}

	authorArgs := AuthorRequest{}
	result, err = pagesByAuthorHandler(w, "bob")(ctx, callRequest("pages_by_author", authorArgs), authorArgs)
	if err != nil {
		t.Fatalf("pages by author: %v", err)
	}
	if diff := cmp.Diff([]string{"rust"}, urlsOf(t, result)); diff != "" {
		t.Fatalf("urls mismatch (-want +got):\n%s", diff)
	}

	authorArgs = AuthorRequest{Author: "ann"}
	result, err = pagesByAuthorHandler(w, "bob")(ctx, callRequest("pages_by_author", authorArgs), authorArgs)
	if err != nil {
		t.Fatalf("pages by author: %v", err)
	}
	if diff := cmp.Diff([]string{"go/intro"}, urlsOf(t, result)); diff != "" {
		t.Fatalf("urls mismatch (-want +got):\n%s", diff)
	}
}
