package waf

import (
	"bytes"
	"net/url"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// links holds the classified links found on one folder page.
type links struct {
	folders []*url.URL
	files   []*url.URL
}

// scraper classifies the links of folder pages below a root URL.
type scraper struct {
	root     *url.URL
	prefix   string
	patterns []string
}

func newScraper(root *url.URL, patterns []string) *scraper {
	prefix := root.Path
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &scraper{root: root, prefix: prefix, patterns: patterns}
}

// scrape extracts the anchors of page (fetched from base) and keeps
// sub-folders and matching files below the root.
func (s *scraper) scrape(base *url.URL, page []byte) links {
	var found links
	z := html.NewTokenizer(bytes.NewReader(page))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return found
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		tok := z.Token()
		if tok.DataAtom != atom.A {
			continue
		}
		for _, attr := range tok.Attr {
			if attr.Key != "href" {
				continue
			}
			s.classify(base, attr.Val, &found)
		}
	}
}

func (s *scraper) classify(base *url.URL, href string, found *links) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return
	}
	u := base.ResolveReference(ref)
	u.Fragment = ""
	if u.RawQuery != "" || u.Host != s.root.Host || (u.Scheme != "http" && u.Scheme != "https") {
		return
	}
	if !strings.HasPrefix(u.Path, s.prefix) {
		return
	}

	if strings.HasSuffix(u.Path, "/") {
		if u.Path != base.Path {
			found.folders = append(found.folders, u)
		}
		return
	}
	if s.matches(path.Base(u.Path)) {
		found.files = append(found.files, u)
	}
}

func (s *scraper) matches(name string) bool {
	for _, p := range s.patterns {
		if ok, err := doublestar.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

// relative returns the path of u below the root.
func (s *scraper) relative(u *url.URL) string {
	return strings.TrimPrefix(u.Path, s.prefix)
}
