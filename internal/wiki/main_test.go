package wiki

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mwiki/internal/content"
	"mwiki/internal/store/sqlite"
)

func TestMain(m *testing.M) {
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	if os.Getenv("WIKI_LOG_LEVEL") == "debug" {
		level.Set(slog.LevelDebug)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
	os.Exit(m.Run())
}

func newTestWiki(t *testing.T, opts ...content.Option) *Wiki {
	t.Helper()
	st, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "pages.sqlite"), sqlite.Options{
		BusyTimeout: time.Second,
		LockTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return New(st, content.NewProcessor(opts...))
}

func savePage(t *testing.T, w *Wiki, url, title, body, tags, author string) *Page {
	t.Helper()
	page, ok, err := w.GetBare(context.Background(), url)
	if err != nil || !ok {
		t.Fatalf("get bare %s: ok=%v err=%v", url, ok, err)
	}
	if title != "" {
		page.SetTitle(title)
	}
	page.SetContent(body)
	page.SetTags(tags)
	if err := page.Save(context.Background(), author, true); err != nil {
		t.Fatalf("save %s: %v", url, err)
	}
	return page
}

func pageURLs(pages []*Page) []string {
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		out = append(out, p.URL())
	}
	return out
}
