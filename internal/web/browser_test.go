//go:build e2e

package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	"mwiki/internal/config"
)

// browserBaseURL returns E2E_BASE_URL when set, else an in-process server.
func browserBaseURL(t *testing.T) string {
	t.Helper()
	if baseURL := os.Getenv("E2E_BASE_URL"); baseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := waitForHTTP(ctx, baseURL); err != nil {
			t.Fatalf("base url not reachable: %v", err)
		}
		return strings.TrimRight(baseURL, "/")
	}
	srv, _ := newTestServer(t, config.Config{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func newBrowserPage(t *testing.T) playwright.Page {
	t.Helper()
	pw, err := playwright.Run()
	if err != nil {
		t.Fatalf("playwright run: %v", err)
	}
	t.Cleanup(func() { _ = pw.Stop() })

	browser, err := pw.Chromium.Launch()
	if err != nil {
		t.Fatalf("launch chromium: %v", err)
	}
	t.Cleanup(func() { _ = browser.Close() })

	page, err := browser.NewPage()
	if err != nil {
		t.Fatalf("new page: %v", err)
	}
	return page
}

func TestBrowserHomeSmoke(t *testing.T) {
	baseURL := browserBaseURL(t)
	page := newBrowserPage(t)

	if _, err := page.Goto(baseURL+"/", playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateNetworkidle}); err != nil {
		t.Fatalf("goto home: %v", err)
	}
	if err := page.Locator("nav a[href='/index/']").WaitFor(); err != nil {
		t.Fatalf("navigation missing: %v", err)
	}
}

func TestBrowserCreateAndEdit(t *testing.T) {
	baseURL := browserBaseURL(t)
	page := newBrowserPage(t)
	slug := "e2e " + time.Now().Format("150405.000")

	if _, err := page.Goto(baseURL+"/create/", playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateNetworkidle}); err != nil {
		t.Fatalf("goto create: %v", err)
	}
	if err := page.Locator("input[name=url]").Fill(slug); err != nil {
		t.Fatalf("fill url: %v", err)
	}
	if err := page.Locator("button[type=submit]").Click(); err != nil {
		t.Fatalf("submit url: %v", err)
	}

	if err := page.Locator("input[name=title]").Fill("Browser Page"); err != nil {
		t.Fatalf("fill title: %v", err)
	}
	if err := page.Locator("textarea[name=content]").Fill("Links to [[Somewhere Else]]."); err != nil {
		t.Fatalf("fill content: %v", err)
	}
	if err := page.Locator("button[type=submit]").Click(); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := page.Locator("article h1").WaitFor(); err != nil {
		t.Fatalf("page heading missing: %v", err)
	}
	title, err := page.Locator("article h1").First().TextContent()
	if err != nil {
		t.Fatalf("title: %v", err)
	}
	if strings.TrimSpace(title) != "Browser Page" {
		t.Fatalf("title = %q", title)
	}
	if err := page.Locator("a[href='/somewhere_else/']").WaitFor(); err != nil {
		t.Fatalf("wikilink missing: %v", err)
	}
	if err := page.Locator(".flash.success").WaitFor(); err != nil {
		t.Fatalf("flash missing: %v", err)
	}
}

func waitForHTTP(ctx context.Context, rawURL string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 500 {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}
