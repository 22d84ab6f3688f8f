package folder

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/logger"
)

// inputBroker yields one record per matching file. The folder is listed on
// the first HasNext call; files are read one at a time by Next.
type inputBroker struct {
	def      domain.EntityDefinition
	root     string
	patterns []string
	fsys     fs.FS

	files  []string
	pos    int
	listed bool
}

func newInputBroker(def domain.EntityDefinition) *inputBroker {
	root := def.Get(PropRoot)
	return &inputBroker{
		def:      def,
		root:     root,
		patterns: def.List(PropPattern, DefaultPattern),
		fsys:     os.DirFS(root),
	}
}

func (b *inputBroker) String() string {
	return fmt.Sprintf("%s[%s]", Type, b.root)
}

func (b *inputBroker) Definition() domain.EntityDefinition { return b.def }

func (b *inputBroker) HasNext(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !b.listed {
		if err := b.list(); err != nil {
			return false, err
		}
	}
	return b.pos < len(b.files), nil
}

func (b *inputBroker) list() error {
	info, err := os.Stat(b.root)
	if err != nil {
		return fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", b.root)
	}

	seen := make(map[string]bool)
	for _, pattern := range b.patterns {
		matches, err := doublestar.Glob(b.fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				b.files = append(b.files, m)
			}
		}
	}
	slices.Sort(b.files)
	b.listed = true
	logger.Debug("Folder %s: %d files match %v", b.root, len(b.files), b.patterns)
	return nil
}

func (b *inputBroker) Next(ctx context.Context) (domain.DataReference, error) {
	if err := ctx.Err(); err != nil {
		return domain.DataReference{}, err
	}
	if !b.listed || b.pos >= len(b.files) {
		return domain.DataReference{}, fmt.Errorf("%s: no more files", b)
	}
	rel := b.files[b.pos]
	b.pos++

	content, err := fs.ReadFile(b.fsys, rel)
	if err != nil {
		return domain.DataReference{}, fmt.Errorf("read %s: %w", rel, err)
	}
	info, err := fs.Stat(b.fsys, rel)
	if err != nil {
		return domain.DataReference{}, fmt.Errorf("stat %s: %w", rel, err)
	}

	abs, err := filepath.Abs(filepath.Join(b.root, filepath.FromSlash(rel)))
	if err != nil {
		abs = filepath.Join(b.root, filepath.FromSlash(rel))
	}

	return domain.NewDataReference(rel, FileURI(abs), b.String(),
		domain.WithContent(content, mimetype.Detect(content).String()),
		domain.WithLastModified(info.ModTime()),
		domain.WithAttributes(map[string]string{"path": rel}),
	), nil
}

func (b *inputBroker) Close() error { return nil }
