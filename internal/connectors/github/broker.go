package github

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/logger"
)

// MaxFileSize is the largest blob harvested; larger files are skipped.
const MaxFileSize = 1024 * 1024

// broker yields the matching blobs of one repository tree.
type broker struct {
	def    domain.EntityDefinition
	cfg    *Config
	client *Client

	ref     string
	entries []*gh.TreeEntry
	listed  bool
}

func newBroker(def domain.EntityDefinition, cfg *Config, client *Client) *broker {
	return &broker{def: def, cfg: cfg, client: client}
}

func (b *broker) String() string {
	return fmt.Sprintf("%s[%s]", Type, b.cfg.FullName())
}

func (b *broker) Definition() domain.EntityDefinition { return b.def }

func (b *broker) HasNext(ctx context.Context) (bool, error) {
	if !b.listed {
		if err := b.list(ctx); err != nil {
			return false, err
		}
	}
	return len(b.entries) > 0, nil
}

func (b *broker) list(ctx context.Context) error {
	ref := b.cfg.Ref
	if ref == "" {
		branch, err := b.client.DefaultBranch(ctx, b.cfg.Owner, b.cfg.Repo)
		if err != nil {
			return classify(err, b.cfg.FullName())
		}
		ref = branch
	}

	tree, err := b.client.Tree(ctx, b.cfg.Owner, b.cfg.Repo, ref)
	if errors.Is(err, ErrTreeTruncated) {
		logger.Warn("GitHub tree of %s@%s is truncated; some files will be missed", b.cfg.FullName(), ref)
	} else if err != nil {
		return classify(err, b.cfg.FullName())
	}

	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" || entry.GetSize() > MaxFileSize {
			continue
		}
		if b.cfg.Matches(entry.GetPath()) {
			b.entries = append(b.entries, entry)
		}
	}
	b.ref = ref
	b.listed = true
	logger.Debug("GitHub %s@%s: %d matching files", b.cfg.FullName(), ref, len(b.entries))
	return nil
}

func (b *broker) Next(ctx context.Context) (domain.DataReference, error) {
	if len(b.entries) == 0 {
		return domain.DataReference{}, fmt.Errorf("%s: no more files", b)
	}
	entry := b.entries[0]
	b.entries = b.entries[1:]

	content, err := b.client.Blob(ctx, b.cfg.Owner, b.cfg.Repo, entry.GetSHA())
	if err != nil {
		return domain.DataReference{}, fmt.Errorf("fetch %s: %w", entry.GetPath(), classify(err, b.cfg.FullName()))
	}

	p := entry.GetPath()
	uri := fmt.Sprintf("https://github.com/%s/%s/blob/%s/%s", b.cfg.Owner, b.cfg.Repo, b.ref, p)
	return domain.NewDataReference(p, uri, b.String(),
		domain.WithContent(content, detectMIMEType(p, content)),
		domain.WithAttributes(map[string]string{
			"path": p,
			"sha":  entry.GetSHA(),
			"repo": b.cfg.FullName(),
			"ref":  b.ref,
		}),
	), nil
}

func (b *broker) Close() error { return nil }

// extMIMETypes covers extensions the mime registry misreports.
var extMIMETypes = map[string]string{
	".md": "text/markdown", ".yaml": "text/yaml", ".yml": "text/yaml", ".toml": "text/toml",
}

// detectMIMEType prefers the extension and falls back to content sniffing.
func detectMIMEType(p string, content []byte) string {
	ext := strings.ToLower(path.Ext(p))
	if t, ok := extMIMETypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if idx := strings.Index(t, ";"); idx != -1 {
			t = strings.TrimSpace(t[:idx])
		}
		return t
	}
	return mimetype.Detect(content).String()
}
