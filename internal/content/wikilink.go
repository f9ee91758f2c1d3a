package content

import (
	"fmt"
	"regexp"
	"strings"
)

// LinkFunc maps a cleaned page url to the href used in rendered links.
type LinkFunc func(url string) string

// DisplayPath is the default LinkFunc and matches the display route of the web layer.
func DisplayPath(url string) string {
	return "/" + url + "/"
}

const codeOpenTag = "<code>"

var wikiLinkRe = regexp.MustCompile(`\[\[([^<].+?)\s*(\|\s*(.+?)\s*)?\]\]`)

// Wikilink rewrites [[Target]] and [[Target|Label]] references in rendered html
// into anchors. A reference directly after an opening <code> tag is left alone.
func Wikilink(html string, link LinkFunc) string {
	if link == nil {
		link = DisplayPath
	}
	if !strings.Contains(html, "[[") {
		return html
	}

	var b strings.Builder
	rest := html
	for {
		loc := findWikiLink(rest)
		if loc == nil {
			b.WriteString(rest)
			break
		}
		target := rest[loc[2]:loc[3]]
		label := target
		if loc[6] >= 0 {
			label = rest[loc[6]:loc[7]]
		}
		b.WriteString(rest[:loc[0]])
		fmt.Fprintf(&b, `<a href="%s">%s</a>`, link(CleanURL(target)), label)
		rest = rest[loc[1]:]
	}
	return b.String()
}

// WikilinkProcessor adapts Wikilink to the postprocessor signature.
func WikilinkProcessor(link LinkFunc) func(string) string {
	return func(html string) string {
		return Wikilink(html, link)
	}
}

// findWikiLink returns the submatch indexes of the first reference in s that is
// not preceded by <code>. Indexes are relative to s.
func findWikiLink(s string) []int {
	offset := 0
	for offset < len(s) {
		loc := wikiLinkRe.FindStringSubmatchIndex(s[offset:])
		if loc == nil {
			return nil
		}
		for i := range loc {
			if loc[i] >= 0 {
				loc[i] += offset
			}
		}
		if !strings.HasSuffix(s[:loc[0]], codeOpenTag) {
			return loc
		}
		offset = loc[0] + 1
	}
	return nil
}
