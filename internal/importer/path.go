package importer

import (
	"errors"
	"path"
	"strings"
)

var ErrUnsafeURL = errors.New("unsafe page url")

// safeURL rejects urls that would escape the wiki root once used as a route
// path, and returns the slash-cleaned form of the rest.
func safeURL(u string) (string, error) {
	if strings.ContainsRune(u, 0) {
		return "", ErrUnsafeURL
	}
	if strings.HasPrefix(u, "/") {
		return "", ErrUnsafeURL
	}
	clean := path.Clean(u)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrUnsafeURL
	}
	return clean, nil
}
