package folder

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

// FileURI converts an absolute path to a file:// URI.
func FileURI(abs string) string {
	return "file://" + filepath.ToSlash(abs)
}

// targetName returns the slash-separated path, relative to the destination
// root, at which ref is written. Records carrying a "path" attribute keep it;
// otherwise the name is derived from the source URI (host plus path).
func targetName(ref domain.DataReference) string {
	if p, ok := ref.Attribute("path"); ok {
		if clean := cleanRelative(p); clean != "" {
			return clean
		}
	}

	if u, err := url.Parse(ref.SourceURI()); err == nil && u.Scheme != "" {
		name := u.Path
		if u.Scheme != "file" {
			name = path.Join(u.Host, u.Path)
		}
		if clean := cleanRelative(name); clean != "" {
			return clean
		}
	}

	if clean := cleanRelative(ref.ID()); clean != "" {
		return clean
	}
	return "record"
}

// cleanRelative strips leading separators and any attempt to escape the root.
func cleanRelative(p string) string {
	p = path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	p = strings.TrimPrefix(p, "/")
	if p == "." {
		return ""
	}
	return p
}
