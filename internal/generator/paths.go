package generator

import (
	"path"
	"strings"
)

// postOutputPath converts a site-relative route into an output-dir-relative
// artifact path. Routes ending in a file name map directly; directory style
// routes get an index.html.
func postOutputPath(route string) string {
	clean := strings.Trim(strings.TrimSpace(route), "/")
	if clean == "" {
		return "index.html"
	}
	if strings.Contains(path.Base(clean), ".") {
		return clean
	}
	return path.Join(clean, "index.html")
}

func joinOutputPath(base string, rel string) string {
	if strings.TrimSpace(base) == "" {
		return strings.TrimLeft(rel, "/")
	}
	return path.Join(strings.Trim(base, "/"), rel)
}
