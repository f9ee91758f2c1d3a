package web

import (
	"html/template"
	"sort"
	"time"

	"mwiki/internal/wiki"
)

const excerptLength = 160

type ViewData struct {
	Title           string
	ContentTemplate string
	ContentHTML     template.HTML
	User            string
	Flashes         []Flash
	Page            *PageView
	Pages           []PageSummary
	AuthoredPages   []PageSummary
	Tags            []TagCount
	Tag             string
	Form            map[string]string
	Errors          map[string]string
	SearchTerm      string
	Searched        bool
	IgnoreCase      bool
	SearchByAuthor  bool
}

type PageView struct {
	URL       string
	Title     string
	Tags      []string
	Author    string
	Content   string
	HTML      template.HTML
	UpdatedAt time.Time
}

type PageSummary struct {
	URL       string
	Title     string
	Author    string
	Excerpt   string
	UpdatedAt time.Time
}

type TagCount struct {
	Name  string
	Count int
}

func newPageView(p *wiki.Page) *PageView {
	if p == nil {
		return nil
	}
	return &PageView{
		URL:       p.URL(),
		Title:     p.Title(),
		Tags:      wiki.SplitTags(p.Tags()),
		Author:    p.Author(),
		Content:   p.Content(),
		HTML:      template.HTML(p.HTML()),
		UpdatedAt: p.UpdatedAt(),
	}
}

func summarize(pages []*wiki.Page) []PageSummary {
	out := make([]PageSummary, 0, len(pages))
	for _, p := range pages {
		out = append(out, PageSummary{
			URL:       p.URL(),
			Title:     p.Title(),
			Author:    p.Author(),
			Excerpt:   p.Excerpt(excerptLength),
			UpdatedAt: p.UpdatedAt(),
		})
	}
	return out
}

// tagCounts orders tags by page count, then by name.
func tagCounts(tags map[string][]*wiki.Page) []TagCount {
	out := make([]TagCount, 0, len(tags))
	for name, pages := range tags {
		out = append(out, TagCount{Name: name, Count: len(pages)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
