package storage

import (
	"path"
	"strings"
)

type parsedURI struct {
	Scheme    string
	Authority string
	Path      string
}

// parseURI splits a URI into scheme, authority and path. A plain filesystem
// path parses with empty scheme and authority.
func parseURI(uri string) parsedURI {
	idx := strings.Index(uri, "://")
	if idx < 0 {
		return parsedURI{Path: uri}
	}
	scheme := uri[:idx]
	rest := uri[idx+3:]
	slash := strings.Index(rest, "/")
	if slash < 0 {
		return parsedURI{Scheme: scheme, Authority: rest, Path: "/"}
	}
	return parsedURI{Scheme: scheme, Authority: rest[:slash], Path: rest[slash:]}
}

func (p parsedURI) String() string {
	if p.Scheme == "" {
		return p.Path
	}
	return p.Scheme + "://" + p.Authority + p.Path
}

// Join appends path elements to a URI, preserving its scheme and authority.
func Join(base string, elems ...string) string {
	p := parseURI(base)
	parts := append([]string{p.Path}, elems...)
	p.Path = path.Join(parts...)
	return p.String()
}

// Base returns the last path element of a URI.
func Base(uri string) string {
	p := parseURI(uri)
	return path.Base(strings.TrimSuffix(p.Path, "/"))
}
