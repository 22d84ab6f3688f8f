package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

func seed(t *testing.T, store *ProcessStore, n int) {
	t.Helper()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		task := "even"
		if i%2 == 1 {
			task = "odd"
		}
		require.NoError(t, store.RecordProcess(context.Background(), &domain.ProcessRecord{
			ProcessID: fmt.Sprintf("p%d", i),
			TaskName:  task,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func TestNewProcessStore(t *testing.T) {
	store := NewProcessStore()
	require.NotNil(t, store)
	assert.NotNil(t, store.records)
}

func TestProcessStore_RecordProcess(t *testing.T) {
	store := NewProcessStore()
	ctx := context.Background()

	t.Run("stores a copy", func(t *testing.T) {
		record := &domain.ProcessRecord{ProcessID: "p1", Processed: 2}
		require.NoError(t, store.RecordProcess(ctx, record))
		record.Processed = 99

		got, err := store.GetProcess(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, 2, got.Processed)
	})

	t.Run("invalid input", func(t *testing.T) {
		assert.ErrorIs(t, store.RecordProcess(ctx, nil), domain.ErrInvalidInput)
		assert.ErrorIs(t, store.RecordProcess(ctx, &domain.ProcessRecord{}), domain.ErrInvalidInput)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := store.GetProcess(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestProcessStore_ListHistory(t *testing.T) {
	store := NewProcessStore()
	ctx := context.Background()
	seed(t, store, 5)

	records, err := store.ListHistory(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "p4", records[0].ProcessID)
	assert.Equal(t, "p3", records[1].ProcessID)

	records, err = store.ListHistory(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, records, 5)

	records, err = store.ListTaskHistory(ctx, "odd", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "p3", records[0].ProcessID)
	assert.Equal(t, "p1", records[1].ProcessID)
}

func TestProcessStore_PruneHistory(t *testing.T) {
	store := NewProcessStore()
	ctx := context.Background()
	seed(t, store, 5)

	require.NoError(t, store.PruneHistory(ctx, 3))
	records, err := store.ListHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "p2", records[2].ProcessID)

	require.NoError(t, store.PruneHistory(ctx, 10))
	records, _ = store.ListHistory(ctx, 0)
	assert.Len(t, records, 3)

	assert.ErrorIs(t, store.PruneHistory(ctx, -1), domain.ErrInvalidInput)
}

func TestProcessStore_ConcurrentAccess(t *testing.T) {
	store := NewProcessStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.RecordProcess(ctx, &domain.ProcessRecord{ProcessID: fmt.Sprintf("p%d", i)})
			_, _ = store.ListHistory(ctx, 5)
		}(i)
	}
	wg.Wait()

	records, err := store.ListHistory(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, records, 50)
}
