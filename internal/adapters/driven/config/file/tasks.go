package file

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

// Ensure TaskFile implements the interface.
var _ driven.TaskSource = (*TaskFile)(nil)

// taskDocument is the on-disk shape of a task file.
type taskDocument struct {
	Tasks []taskEntry `toml:"task"`
}

type taskEntry struct {
	Name         string        `toml:"name"`
	Processor    *entityEntry  `toml:"processor"`
	Source       *entityEntry  `toml:"source"`
	Destinations []entityEntry `toml:"destination"`
}

type entityEntry struct {
	Type       string         `toml:"type"`
	Label      string         `toml:"label"`
	Properties map[string]any `toml:"properties"`
}

// TaskFile is a set of task definitions read from a TOML file.
type TaskFile struct {
	path  string
	tasks []domain.TaskDefinition
}

// LoadTasks reads and parses the task file at path.
func LoadTasks(path string) (*TaskFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading task file: %w", err)
	}
	tf, err := ParseTasks(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	tf.path = path
	return tf, nil
}

// ParseTasks parses task definitions from TOML.
// Structural problems are reported as domain.ErrInvalidDefinition;
// connector-specific properties are not checked here.
func ParseTasks(data []byte) (*TaskFile, error) {
	var doc taskDocument
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, domain.InvalidDefinitionf("parsing tasks: %v", err)
	}

	tf := &TaskFile{tasks: make([]domain.TaskDefinition, 0, len(doc.Tasks))}
	seen := make(map[string]bool)
	for i, entry := range doc.Tasks {
		def, err := entry.definition(i)
		if err != nil {
			return nil, err
		}
		if seen[def.Name] {
			return nil, domain.InvalidDefinitionf("task %q declared twice", def.Name)
		}
		seen[def.Name] = true
		tf.tasks = append(tf.tasks, def)
	}
	return tf, nil
}

func (e taskEntry) definition(index int) (domain.TaskDefinition, error) {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		name = "task-" + strconv.Itoa(index+1)
	}
	if e.Source == nil {
		return domain.TaskDefinition{}, domain.InvalidDefinitionf("task %q: missing source", name)
	}

	source, err := e.Source.definition(name, "source")
	if err != nil {
		return domain.TaskDefinition{}, err
	}

	def := domain.TaskDefinition{Name: name, Source: source}
	for i, d := range e.Destinations {
		dest, err := d.definition(name, fmt.Sprintf("destination %d", i+1))
		if err != nil {
			return domain.TaskDefinition{}, err
		}
		def.Destinations = append(def.Destinations, dest)
	}
	if e.Processor != nil {
		proc, err := e.Processor.definition(name, "processor")
		if err != nil {
			return domain.TaskDefinition{}, err
		}
		def.Processor = &proc
	}
	return def, nil
}

func (e entityEntry) definition(task, role string) (domain.EntityDefinition, error) {
	if strings.TrimSpace(e.Type) == "" {
		return domain.EntityDefinition{}, domain.InvalidDefinitionf("task %q: %s has no type", task, role)
	}
	props := make(map[string]string)
	for k, v := range flattenMap(e.Properties, "") {
		props[k] = stringify(v)
	}
	label := e.Label
	if label == "" {
		label = role
	}
	return domain.NewEntityDefinition(e.Type, label, props), nil
}

// flattenMap converts nested maps to dot-notation keys.
// E.g., {"a": {"b": 1}} becomes {"a.b": 1}.
func flattenMap(m map[string]any, prefix string) map[string]any {
	result := make(map[string]any)

	for key, value := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := value.(map[string]any); ok {
			for k, v := range flattenMap(nested, fullKey) {
				result[k] = v
			}
		} else {
			result[fullKey] = value
		}
	}

	return result
}

// stringify renders a decoded TOML value as a property string.
// Arrays become comma-separated lists.
func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, ",")
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

// Path returns the file the tasks were loaded from; empty when parsed from memory.
func (f *TaskFile) Path() string {
	return f.path
}

// Tasks returns every task definition in declaration order.
func (f *TaskFile) Tasks() []domain.TaskDefinition {
	out := make([]domain.TaskDefinition, len(f.tasks))
	copy(out, f.tasks)
	return out
}

// Task returns the named task definition.
func (f *TaskFile) Task(name string) (domain.TaskDefinition, error) {
	for _, t := range f.tasks {
		if t.Name == name {
			return t, nil
		}
	}
	return domain.TaskDefinition{}, fmt.Errorf("task %q: %w", name, domain.ErrNotFound)
}

// Names returns the task names, sorted.
func (f *TaskFile) Names() []string {
	names := make([]string, 0, len(f.tasks))
	for _, t := range f.tasks {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}
