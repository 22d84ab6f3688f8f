package waf

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/logger"
)

// broker walks a web accessible folder breadth first.
type broker struct {
	def     domain.EntityDefinition
	cfg     *Config
	client  *client
	scraper *scraper

	folders []*url.URL
	files   []*url.URL
	visited map[string]bool
}

func newBroker(def domain.EntityDefinition, cfg *Config, c *client) *broker {
	return &broker{
		def:     def,
		cfg:     cfg,
		client:  c,
		scraper: newScraper(cfg.Root, cfg.Patterns),
		folders: []*url.URL{cfg.Root},
		visited: map[string]bool{cfg.Root.String(): true},
	}
}

func (b *broker) String() string {
	return fmt.Sprintf("%s[%s]", Type, b.cfg.Root)
}

func (b *broker) Definition() domain.EntityDefinition { return b.def }

// HasNext scrapes folders until a file is queued or no folder is left.
func (b *broker) HasNext(ctx context.Context) (bool, error) {
	for len(b.files) == 0 && len(b.folders) > 0 {
		folder := b.folders[0]
		b.folders = b.folders[1:]
		if err := b.scrapeFolder(ctx, folder); err != nil {
			return false, err
		}
	}
	return len(b.files) > 0, nil
}

func (b *broker) scrapeFolder(ctx context.Context, folder *url.URL) error {
	resp, err := b.client.get(ctx, folder.String())
	if err != nil {
		return fmt.Errorf("scrape %s: %w", folder, err)
	}

	// Relative links resolve against the final URL after redirects.
	base := folder
	if req := resp.RawResponse.Request; req != nil && req.URL != nil {
		base = req.URL
	}

	found := b.scraper.scrape(base, resp.Body())
	for _, f := range found.folders {
		if key := f.String(); !b.visited[key] {
			b.visited[key] = true
			b.folders = append(b.folders, f)
		}
	}
	for _, f := range found.files {
		if key := f.String(); !b.visited[key] {
			b.visited[key] = true
			b.files = append(b.files, f)
		}
	}
	logger.Debug("WAF %s: %d files, %d folders", folder, len(found.files), len(found.folders))
	return nil
}

// Next downloads the next queued file.
func (b *broker) Next(ctx context.Context) (domain.DataReference, error) {
	if len(b.files) == 0 {
		return domain.DataReference{}, fmt.Errorf("%s: no more files", b)
	}
	file := b.files[0]
	b.files = b.files[1:]

	resp, err := b.client.get(ctx, file.String())
	if err != nil {
		return domain.DataReference{}, fmt.Errorf("fetch %s: %w", file, err)
	}

	body := resp.Body()
	contentType := resp.Header().Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = mimetype.Detect(body).String()
	}

	opts := []domain.DataReferenceOption{
		domain.WithContent(body, contentType),
		domain.WithAttributes(map[string]string{"path": b.scraper.relative(file)}),
	}
	if lm := resp.Header().Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			opts = append(opts, domain.WithLastModified(t))
		}
	}

	return domain.NewDataReference(file.String(), file.String(), b.String(), opts...), nil
}

func (b *broker) Close() error { return nil }
