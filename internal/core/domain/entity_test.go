package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntityDefinition_CopiesProperties(t *testing.T) {
	props := map[string]string{"folder.root": "/data"}
	def := NewEntityDefinition("FOLDER", "out", props)

	props["folder.root"] = "/elsewhere"

	assert.Equal(t, "/data", def.Get("folder.root"))
}

func TestEntityDefinition_Get(t *testing.T) {
	def := NewEntityDefinition("WAF", "web", map[string]string{
		"waf.host.url": "  http://example.com/  ",
		"blank":        "   ",
	})

	t.Run("trims values", func(t *testing.T) {
		assert.Equal(t, "http://example.com/", def.Get("waf.host.url"))
	})

	t.Run("default for missing or blank", func(t *testing.T) {
		assert.Equal(t, "x", def.GetOrDefault("missing", "x"))
		assert.Equal(t, "y", def.GetOrDefault("blank", "y"))
	})

	t.Run("require reports missing key", func(t *testing.T) {
		_, err := def.Require("blank")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidDefinition))
		assert.Contains(t, err.Error(), `"blank"`)

		v, err := def.Require("waf.host.url")
		require.NoError(t, err)
		assert.Equal(t, "http://example.com/", v)
	})
}

func TestEntityDefinition_String(t *testing.T) {
	def := NewEntityDefinition("GITHUB", "repo", map[string]string{
		"github.token": "ghp_secret",
		"github.repo":  "octo/cat",
	})

	s := def.String()

	assert.Equal(t, "GITHUB[repo]{github.repo=octo/cat, github.token=*****}", s)
	assert.NotContains(t, s, "ghp_secret")
}

func TestTaskDefinition(t *testing.T) {
	task := TaskDefinition{
		Name:   "nightly",
		Source: NewEntityDefinition("FOLDER", "in", nil),
		Destinations: []EntityDefinition{
			NewEntityDefinition("FOLDER", "out-1", nil),
			NewEntityDefinition("REDIS", "out-2", nil),
		},
	}

	t.Run("binds roles", func(t *testing.T) {
		assert.Equal(t, RoleSource, task.SourceDefinition().Role)
		dests := task.DestinationDefinitions()
		require.Len(t, dests, 2)
		assert.Equal(t, RoleDestination, dests[1].Role)
		assert.Equal(t, "REDIS", dests[1].Type)
	})

	t.Run("processor type fallback", func(t *testing.T) {
		assert.Equal(t, "DEFAULT", task.ProcessorType("DEFAULT"))

		task.Processor = &EntityDefinition{Type: "CUSTOM"}
		assert.Equal(t, "CUSTOM", task.ProcessorType("DEFAULT"))
	})
}

func TestEntityDefinition_List(t *testing.T) {
	def := NewEntityDefinition("FOLDER", "in", map[string]string{
		"folder.pattern": " **/*.xml, ,*.json ",
		"blank":          " , ",
	})

	assert.Equal(t, []string{"**/*.xml", "*.json"}, def.List("folder.pattern"))
	assert.Equal(t, []string{"**/*"}, def.List("blank", "**/*"))
	assert.Nil(t, def.List("missing"))
}
