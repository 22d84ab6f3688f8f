package folder

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

const xmlDoc = `<?xml version="1.0" encoding="UTF-8"?><a/>`

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func drain(t *testing.T, b interface {
	HasNext(context.Context) (bool, error)
	Next(context.Context) (domain.DataReference, error)
}) []domain.DataReference {
	t.Helper()
	ctx := context.Background()
	var refs []domain.DataReference
	for {
		more, err := b.HasNext(ctx)
		require.NoError(t, err)
		if !more {
			return refs
		}
		ref, err := b.Next(ctx)
		require.NoError(t, err)
		refs = append(refs, ref)
	}
}

func TestInputConnector_Validate(t *testing.T) {
	c := NewInputConnector()

	t.Run("requires root", func(t *testing.T) {
		err := c.Validate(domain.NewEntityDefinition(Type, "in", nil))
		assert.ErrorIs(t, err, domain.ErrInvalidDefinition)
	})

	t.Run("rejects malformed pattern", func(t *testing.T) {
		def := domain.NewEntityDefinition(Type, "in", map[string]string{
			PropRoot:    "/data",
			PropPattern: "**/[.xml",
		})
		assert.ErrorIs(t, c.Validate(def), domain.ErrInvalidDefinition)
	})

	t.Run("does not touch the filesystem", func(t *testing.T) {
		def := domain.NewEntityDefinition(Type, "in", map[string]string{PropRoot: "/does/not/exist"})
		assert.NoError(t, c.Validate(def))
	})
}

func TestInputBroker_Crawl(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.xml", xmlDoc)
	writeFile(t, root, "nested/b.xml", "<b/>")
	writeFile(t, root, "nested/deeper/c.json", `{"c":1}`)
	writeFile(t, root, "notes.txt", "skip me")

	broker, err := NewInputConnector().CreateBroker(domain.NewEntityDefinition(Type, "in", map[string]string{
		PropRoot:    root,
		PropPattern: "**/*.xml, **/*.json",
	}))
	require.NoError(t, err)
	defer broker.Close()

	refs := drain(t, broker)
	require.Len(t, refs, 3)

	ids := []string{refs[0].ID(), refs[1].ID(), refs[2].ID()}
	assert.Equal(t, []string{"a.xml", "nested/b.xml", "nested/deeper/c.json"}, ids)

	first := refs[0]
	assert.Equal(t, []byte(xmlDoc), first.Content())
	assert.Contains(t, first.ContentType(), "xml")
	assert.Equal(t, broker.String(), first.SourceBrokerID())
	assert.False(t, first.LastModified().IsZero())
	assert.Equal(t, FileURI(filepath.Join(root, "a.xml")), first.SourceURI())

	_, err = broker.Next(context.Background())
	assert.Error(t, err)
}

func TestInputBroker_MissingRoot(t *testing.T) {
	broker, err := NewInputConnector().CreateBroker(domain.NewEntityDefinition(Type, "in", map[string]string{
		PropRoot: filepath.Join(t.TempDir(), "missing"),
	}))
	require.NoError(t, err)

	_, err = broker.HasNext(context.Background())
	assert.Error(t, err)
}

func TestOutputConnector_Validate(t *testing.T) {
	c := NewOutputConnector()

	assert.ErrorIs(t, c.Validate(domain.NewEntityDefinition(Type, "out", nil)), domain.ErrInvalidDefinition)

	bad := domain.NewEntityDefinition(Type, "out", map[string]string{PropRoot: "/out", PropCleanup: "sometimes"})
	assert.ErrorIs(t, c.Validate(bad), domain.ErrInvalidDefinition)

	good := domain.NewEntityDefinition(Type, "out", map[string]string{PropRoot: "/out", PropCleanup: "TRUE"})
	assert.NoError(t, c.Validate(good))
}

func TestOutputBroker_Publish(t *testing.T) {
	mem := afero.NewMemMapFs()
	broker, err := NewOutputConnector(WithFs(mem)).CreateBroker(
		domain.NewEntityDefinition(Type, "out", map[string]string{PropRoot: "/out"}))
	require.NoError(t, err)

	ctx := context.Background()
	withPath := domain.NewDataReference("r1", "file:///src/a.xml", "IN",
		domain.WithContent([]byte("<a/>"), "text/xml"),
		domain.WithAttributes(map[string]string{"path": "nested/a.xml"}))
	fromURL := domain.NewDataReference("r2", "https://catalog.example.com/records/b.xml", "WAF",
		domain.WithContent([]byte("<b/>"), "text/xml"))
	escaping := domain.NewDataReference("r3", "", "IN",
		domain.WithContent([]byte("x"), "text/plain"),
		domain.WithAttributes(map[string]string{"path": "../../etc/passwd"}))

	require.NoError(t, broker.Publish(ctx, withPath))
	require.NoError(t, broker.Publish(ctx, fromURL))
	require.NoError(t, broker.Publish(ctx, escaping))

	got, err := afero.ReadFile(mem, "/out/nested/a.xml")
	require.NoError(t, err)
	assert.Equal(t, "<a/>", string(got))

	got, err = afero.ReadFile(mem, "/out/catalog.example.com/records/b.xml")
	require.NoError(t, err)
	assert.Equal(t, "<b/>", string(got))

	exists, err := afero.Exists(mem, "/out/etc/passwd")
	require.NoError(t, err)
	assert.True(t, exists)

	err = broker.Publish(ctx, domain.NewDataReference("empty", "mem://empty", "IN"))
	assert.Error(t, err)

	require.NoError(t, broker.Close())
	assert.ErrorIs(t, broker.Publish(ctx, withPath), domain.ErrBrokerClosed)
}

func TestOutputBroker_PublishCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out", "records")
	broker, err := NewOutputConnector().CreateBroker(
		domain.NewEntityDefinition(Type, "out", map[string]string{PropRoot: root}))
	require.NoError(t, err)

	ctx := context.Background()
	top := domain.NewDataReference("a", "file:///src/a.xml", "IN",
		domain.WithContent([]byte("<a/>"), "text/xml"),
		domain.WithAttributes(map[string]string{"path": "a.xml"}))
	nested := domain.NewDataReference("b", "file:///src/sub/b.xml", "IN",
		domain.WithContent([]byte("<b/>"), "text/xml"),
		domain.WithAttributes(map[string]string{"path": "sub/b.xml"}))

	require.NoError(t, broker.Publish(ctx, top))
	require.NoError(t, broker.Publish(ctx, nested))
	require.NoError(t, broker.Close())

	got, err := os.ReadFile(filepath.Join(root, "a.xml"))
	require.NoError(t, err)
	assert.Equal(t, "<a/>", string(got))
	got, err = os.ReadFile(filepath.Join(root, "sub", "b.xml"))
	require.NoError(t, err)
	assert.Equal(t, "<b/>", string(got))
}

func TestOutputBroker_Cleanup(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/out/stale.xml", []byte("old"), 0o644))
	require.NoError(t, afero.WriteFile(mem, "/out/keep/a.xml", []byte("old"), 0o644))
	require.NoError(t, afero.WriteFile(mem, "/elsewhere.xml", []byte("untouched"), 0o644))

	broker, err := NewOutputConnector(WithFs(mem)).CreateBroker(
		domain.NewEntityDefinition(Type, "out", map[string]string{PropRoot: "/out", PropCleanup: "true"}))
	require.NoError(t, err)

	ref := domain.NewDataReference("a", "file:///src/keep/a.xml", "IN",
		domain.WithContent([]byte("new"), "text/xml"),
		domain.WithAttributes(map[string]string{"path": "keep/a.xml"}))
	require.NoError(t, broker.Publish(context.Background(), ref))
	require.NoError(t, broker.Close())

	exists, _ := afero.Exists(mem, "/out/stale.xml")
	assert.False(t, exists)
	got, err := afero.ReadFile(mem, "/out/keep/a.xml")
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
	exists, _ = afero.Exists(mem, "/elsewhere.xml")
	assert.True(t, exists)
}

func TestOutputBroker_CleanupOfMissingRoot(t *testing.T) {
	broker, err := NewOutputConnector(WithFs(afero.NewMemMapFs())).CreateBroker(
		domain.NewEntityDefinition(Type, "out", map[string]string{PropRoot: "/never", PropCleanup: "true"}))
	require.NoError(t, err)
	assert.NoError(t, broker.Close())
}
