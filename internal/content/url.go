package content

import (
	"regexp"
	"strings"
)

var multiSpaceRe = regexp.MustCompile(`[ ]{2,}`)

// CleanURL turns a human-entered title or path into the storage key of a page.
// Runs of spaces collapse, the result is trimmed and lowercased, spaces become
// underscores and Windows separators become forward slashes.
func CleanURL(raw string) string {
	url := strings.TrimSpace(multiSpaceRe.ReplaceAllString(raw, " "))
	url = strings.ReplaceAll(strings.ToLower(url), " ", "_")
	url = strings.ReplaceAll(url, `\\`, "/")
	return strings.ReplaceAll(url, `\`, "/")
}
