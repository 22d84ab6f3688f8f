package folder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/logger"
)

// File permissions for written records.
const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// outputBroker writes record content into a root folder.
type outputBroker struct {
	def     domain.EntityDefinition
	fs      afero.Fs
	cleanup bool

	mu      sync.Mutex
	written map[string]bool
	created map[string]bool
	closed  bool
}

func newOutputBroker(def domain.EntityDefinition, fs afero.Fs, cleanup bool) *outputBroker {
	return &outputBroker{
		def:     def,
		fs:      fs,
		cleanup: cleanup,
		written: make(map[string]bool),
		created: make(map[string]bool),
	}
}

func (b *outputBroker) String() string {
	return fmt.Sprintf("%s[%s]", Type, b.def.Get(PropRoot))
}

func (b *outputBroker) Definition() domain.EntityDefinition { return b.def }

func (b *outputBroker) Publish(ctx context.Context, ref domain.DataReference) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ref.HasContent() {
		return fmt.Errorf("record %s has no content", ref.ID())
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return domain.ErrBrokerClosed
	}

	name := targetName(ref)
	// "." is the destination root, which may not exist yet.
	if dir := path.Dir(name); !b.created[dir] {
		if err := b.fs.MkdirAll(dir, dirPerm); err != nil {
			return fmt.Errorf("create folder %s: %w", dir, err)
		}
		b.created[dir] = true
	}
	if err := afero.WriteFile(b.fs, name, ref.Content(), filePerm); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	b.written[name] = true
	return nil
}

// Close removes stale files when cleanup is enabled.
func (b *outputBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if !b.cleanup {
		return nil
	}

	var stale []string
	err := afero.Walk(b.fs, "/", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		name := strings.TrimPrefix(filepath.ToSlash(p), "/")
		if !b.written[name] {
			stale = append(stale, p)
		}
		return nil
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("scan %s: %w", b, err)
	}

	var errs []error
	for _, p := range stale {
		if err := b.fs.Remove(p); err != nil {
			errs = append(errs, err)
		}
	}
	logger.Debug("Folder %s: removed %d stale files", b.def.Get(PropRoot), len(stale)-len(errs))
	return errors.Join(errs...)
}
