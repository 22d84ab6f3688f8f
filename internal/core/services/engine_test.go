package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driving"
)

func newTestEngine(t *testing.T, opts ...EngineOption) (*Engine, *fakeInputConnector) {
	t.Helper()
	reg, in, _ := newTestRegistry(t)
	procs, err := NewProcessorRegistry(NewDefaultProcessor(nil))
	require.NoError(t, err)
	return NewEngine(reg, procs, opts...), in
}

func TestEngine_SubmitAndRun(t *testing.T) {
	var attached []string
	engine, _ := newTestEngine(t, WithListeners(func(p driving.ProcessInstance) driving.Listener {
		attached = append(attached, p.ID())
		return driving.NopListener{}
	}))

	p, err := engine.Submit(context.Background(), fakeTaskDefinition("x"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, p.Status())
	assert.Equal(t, []string{p.ID()}, attached)

	got, err := engine.Get(p.ID())
	require.NoError(t, err)
	assert.Same(t, p, got)

	rec := newEventRecorder()
	p.AddListener(rec)
	require.NoError(t, p.Begin())
	require.True(t, rec.waitCompleted(waitTimeout))
	assert.Equal(t, []string{"status(working)", "data(A)", "status(completed)"}, rec.Events())
}

func TestEngine_SubmitRejectsInvalidDefinitions(t *testing.T) {
	engine, in := newTestEngine(t)

	def := fakeTaskDefinition("x")
	def.Source.Properties = nil
	_, err := engine.Submit(context.Background(), def)
	assert.ErrorIs(t, err, domain.ErrInvalidDefinition)
	assert.Zero(t, in.created)

	def = fakeTaskDefinition("x")
	def.Processor = &domain.EntityDefinition{Type: "STREAMING"}
	_, err = engine.Submit(context.Background(), def)
	assert.ErrorIs(t, err, domain.ErrUnknownType)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = engine.Submit(ctx, fakeTaskDefinition("x"))
	assert.ErrorIs(t, err, context.Canceled)

	assert.Empty(t, engine.List())
}

func TestEngine_AbortAndPurge(t *testing.T) {
	engine, in := newTestEngine(t)
	in.input.gate = make(chan struct{})

	p, err := engine.Submit(context.Background(), fakeTaskDefinition("x"))
	require.NoError(t, err)

	err = engine.Abort(p.ID())
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = engine.Get("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, engine.Abort("missing"), domain.ErrNotFound)

	require.NoError(t, p.Begin())
	require.NoError(t, engine.Abort(p.ID()))
	assert.Zero(t, engine.Purge(), "aborting process must stay tracked")

	close(in.input.gate)
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	require.NoError(t, p.Wait(ctx))

	assert.Equal(t, 1, engine.Purge())
	assert.Empty(t, engine.List())
}

func TestEngine_HistoryWithStore(t *testing.T) {
	older := domain.ProcessRecord{ProcessID: "old", StartedAt: time.Now().Add(-time.Hour)}
	newer := domain.ProcessRecord{ProcessID: "new", StartedAt: time.Now()}

	pruned := make(chan struct{}, 1)
	store := new(mockProcessStore)
	store.On("RecordProcess", mock.Anything, mock.Anything).Return(nil)
	store.On("PruneHistory", mock.Anything, 3).Return(nil).Run(func(mock.Arguments) {
		pruned <- struct{}{}
	})
	store.On("ListHistory", mock.Anything, 20).Return([]domain.ProcessRecord{older, newer}, nil)

	engine, _ := newTestEngine(t, WithProcessStore(store, 3))
	p, err := engine.Submit(context.Background(), fakeTaskDefinition("x"))
	require.NoError(t, err)
	require.NoError(t, p.Begin())
	require.NoError(t, p.Wait(context.Background()))

	select {
	case <-pruned:
	case <-time.After(waitTimeout):
		t.Fatal("history was not pruned")
	}

	records, err := engine.History(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "new", records[0].ProcessID)
}

func TestEngine_HistoryWithoutStore(t *testing.T) {
	engine, _ := newTestEngine(t)
	records, err := engine.History(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = engine.TaskHistory(context.Background(), "x", 10)
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = engine.Run(context.Background(), "p1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEngine_TaskHistoryAndRun(t *testing.T) {
	ctx := context.Background()
	older := domain.ProcessRecord{ProcessID: "old", TaskName: "daily", StartedAt: time.Now().Add(-time.Hour)}
	newer := domain.ProcessRecord{ProcessID: "new", TaskName: "daily", StartedAt: time.Now()}

	store := new(mockProcessStore)
	store.On("ListTaskHistory", mock.Anything, "daily", 5).Return([]domain.ProcessRecord{older, newer}, nil)
	store.On("GetProcess", mock.Anything, "new").Return(&newer, nil)
	store.On("GetProcess", mock.Anything, "gone").Return(nil, domain.ErrNotFound)

	engine, _ := newTestEngine(t, WithProcessStore(store, 3))

	records, err := engine.TaskHistory(ctx, "daily", 5)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "new", records[0].ProcessID)

	rec, err := engine.Run(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, "daily", rec.TaskName)

	_, err = engine.Run(ctx, "gone")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	store.AssertExpectations(t)
}

func TestEngine_ListPreservesSubmissionOrder(t *testing.T) {
	engine, _ := newTestEngine(t)
	var ids []string
	for range 3 {
		p, err := engine.Submit(context.Background(), fakeTaskDefinition())
		require.NoError(t, err)
		ids = append(ids, p.ID())
	}

	var listed []string
	for _, p := range engine.List() {
		listed = append(listed, p.ID())
	}
	assert.Equal(t, ids, listed)
}
