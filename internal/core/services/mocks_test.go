package services

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

// --- Broker fakes shared by the service tests ---

var errUpstream = errors.New("upstream unavailable")

// fakeInput yields refs in order. failAt (1-indexed) makes Next fail for
// that record; gate, when set, must deliver a value before each HasNext.
type fakeInput struct {
	name   string
	refs   []domain.DataReference
	failAt int
	panics bool
	gate   chan struct{}

	mu     stdsync.Mutex
	pos    int
	closed bool
}

func newFakeInput(ids ...string) *fakeInput {
	in := &fakeInput{name: "IN"}
	for _, id := range ids {
		in.refs = append(in.refs, domain.NewDataReference(id, "mem://"+id, "IN"))
	}
	return in
}

func (f *fakeInput) String() string { return f.name }

func (f *fakeInput) Definition() domain.EntityDefinition {
	return domain.NewEntityDefinition("FAKE", f.name, nil)
}

func (f *fakeInput) HasNext(ctx context.Context) (bool, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos < len(f.refs), nil
}

func (f *fakeInput) Next(_ context.Context) (domain.DataReference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pos >= len(f.refs) {
		return domain.DataReference{}, errors.New("exhausted")
	}
	f.pos++
	if f.pos == f.failAt {
		if f.panics {
			panic("source exploded")
		}
		return domain.DataReference{}, errUpstream
	}
	return f.refs[f.pos-1], nil
}

func (f *fakeInput) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeInput) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeOutput records every offered reference.
type fakeOutput struct {
	name    string
	failOn  map[string]bool
	panicOn map[string]bool
	delay   time.Duration

	// closePanics makes Close panic.
	closePanics bool

	mu        stdsync.Mutex
	attempted []string
	published []string
	closed    bool
}

func newFakeOutput(name string) *fakeOutput {
	return &fakeOutput{name: name, failOn: map[string]bool{}, panicOn: map[string]bool{}}
}

func (f *fakeOutput) String() string { return f.name }

func (f *fakeOutput) Definition() domain.EntityDefinition {
	return domain.NewEntityDefinition("FAKE", f.name, nil)
}

func (f *fakeOutput) Publish(_ context.Context, ref domain.DataReference) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempted = append(f.attempted, ref.ID())
	if f.panicOn[ref.ID()] {
		panic("destination exploded")
	}
	if f.failOn[ref.ID()] {
		return fmt.Errorf("rejected %s", ref.ID())
	}
	f.published = append(f.published, ref.ID())
	return nil
}

func (f *fakeOutput) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	if f.closePanics {
		panic("close exploded")
	}
	return nil
}

func (f *fakeOutput) attempts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.attempted...)
}

func (f *fakeOutput) publishedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.published...)
}

func (f *fakeOutput) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// --- Connector fakes ---

type fakeInputConnector struct {
	typ       string
	input     *fakeInput
	createErr error
	created   int
}

func (c *fakeInputConnector) Type() string { return c.typ }

func (c *fakeInputConnector) Template() domain.ConnectorTemplate {
	return domain.ConnectorTemplate{
		Type: c.typ,
		Name: "Fake input",
		ConfigKeys: []domain.ConfigKey{
			{Key: "fake.path", Required: true},
		},
	}
}

func (c *fakeInputConnector) Validate(def domain.EntityDefinition) error {
	t := c.Template()
	return t.CheckRequired(def)
}

func (c *fakeInputConnector) CreateBroker(def domain.EntityDefinition) (driven.InputBroker, error) {
	if err := c.Validate(def); err != nil {
		return nil, err
	}
	if c.createErr != nil {
		return nil, c.createErr
	}
	c.created++
	if c.input != nil {
		return c.input, nil
	}
	return newFakeInput(), nil
}

type fakeOutputConnector struct {
	typ       string
	outputs   []*fakeOutput
	createErr error
	created   int
}

func (c *fakeOutputConnector) Type() string { return c.typ }

func (c *fakeOutputConnector) Template() domain.ConnectorTemplate {
	return domain.ConnectorTemplate{Type: c.typ, Name: "Fake output"}
}

func (c *fakeOutputConnector) Validate(def domain.EntityDefinition) error {
	if def.Get("fake.reject") != "" {
		return domain.InvalidDefinitionf("%s: rejected", c.typ)
	}
	return nil
}

func (c *fakeOutputConnector) CreateBroker(def domain.EntityDefinition) (driven.OutputBroker, error) {
	if c.createErr != nil {
		return nil, c.createErr
	}
	if c.created >= len(c.outputs) {
		c.outputs = append(c.outputs, newFakeOutput(def.Label))
	}
	out := c.outputs[c.created]
	c.created++
	return out, nil
}

// --- Listener recorder ---

// eventRecorder captures listener events as strings in arrival order.
type eventRecorder struct {
	mu     stdsync.Mutex
	events []string
	done   chan struct{}
	once   stdsync.Once
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{done: make(chan struct{})}
}

func (r *eventRecorder) OnStatusChange(s domain.Status) {
	r.append("status(" + s.String() + ")")
	if s == domain.StatusCompleted {
		r.once.Do(func() { close(r.done) })
	}
}

func (r *eventRecorder) OnDataProcessed(ref domain.DataReference) {
	r.append("data(" + ref.ID() + ")")
}

func (r *eventRecorder) OnInputError(err *domain.DataInputError) {
	r.append("inputError(" + err.Source + ")")
}

func (r *eventRecorder) OnOutputError(err *domain.DataOutputError) {
	r.append("outputError(" + err.Reference.ID() + "," + err.Destination + ")")
}

func (r *eventRecorder) append(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *eventRecorder) count(prefix string) int {
	n := 0
	for _, e := range r.Events() {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (r *eventRecorder) waitCompleted(timeout time.Duration) bool {
	select {
	case <-r.done:
		return true
	case <-time.After(timeout):
		return false
	}
}
