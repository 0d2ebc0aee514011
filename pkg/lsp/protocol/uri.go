package protocol

import (
	"net/url"
	"path/filepath"
	"strings"
)

// DocumentURI is a file:// URI as sent over the wire.
type DocumentURI string

// URIFromPath builds a file URI for an absolute buffer path.
func URIFromPath(path string) DocumentURI {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return DocumentURI(u.String())
}

// Path returns the filesystem path of the URI, falling back to stripping the
// scheme when the URI does not parse.
func (u DocumentURI) Path() string {
	parsed, err := url.Parse(string(u))
	if err != nil || parsed.Scheme != "file" {
		uri := strings.TrimPrefix(string(u), "file://")
		return strings.TrimPrefix(uri, "file:")
	}
	return filepath.FromSlash(parsed.Path)
}
