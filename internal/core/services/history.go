package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
	"github.com/custodia-labs/harvester/internal/core/ports/driving"
	"github.com/custodia-labs/harvester/internal/logger"
)

// DefaultHistoryLimit is the number of process records kept after pruning.
const DefaultHistoryLimit = 100

// historyTimeout bounds a single store write at completion.
const historyTimeout = 5 * time.Second

// historyClock is overridden in tests.
var historyClock = time.Now

// HistoryRecorder counts the events of one process and writes a
// ProcessRecord to the store when it completes.
type HistoryRecorder struct {
	store driven.ProcessStore
	keep  int

	mu     sync.Mutex
	record domain.ProcessRecord
	saved  chan struct{}
}

// Ensure HistoryRecorder implements the listener interface.
var _ driving.Listener = (*HistoryRecorder)(nil)

// NewHistoryRecorder creates a recorder for process. keep <= 0 disables pruning.
func NewHistoryRecorder(store driven.ProcessStore, keep int, taskName string, process driving.ProcessInstance) *HistoryRecorder {
	return &HistoryRecorder{
		store: store,
		keep:  keep,
		record: domain.ProcessRecord{
			ProcessID: process.ID(),
			TaskName:  taskName,
			Title:     process.Title(),
		},
		saved: make(chan struct{}),
	}
}

// Saved is closed after the record has been written (or the write failed).
func (h *HistoryRecorder) Saved() <-chan struct{} {
	return h.saved
}

// Record returns a copy of the record collected so far.
func (h *HistoryRecorder) Record() domain.ProcessRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.record
}

// OnStatusChange tracks start, abort and completion.
func (h *HistoryRecorder) OnStatusChange(status domain.Status) {
	h.mu.Lock()
	switch status {
	case domain.StatusWorking:
		h.record.StartedAt = historyClock()
	case domain.StatusAborting:
		h.record.Aborted = true
	case domain.StatusCompleted:
		h.record.EndedAt = historyClock()
		if h.record.StartedAt.IsZero() {
			h.record.StartedAt = h.record.EndedAt
		}
	}
	record := h.record
	h.mu.Unlock()

	if status == domain.StatusCompleted {
		h.save(&record)
	}
}

// OnDataProcessed counts records taken from the source.
func (h *HistoryRecorder) OnDataProcessed(domain.DataReference) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record.Processed++
}

// OnInputError counts source failures.
func (h *HistoryRecorder) OnInputError(err *domain.DataInputError) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record.InputErrors++
	h.record.LastError = err.Error()
}

// OnOutputError counts publish failures.
func (h *HistoryRecorder) OnOutputError(err *domain.DataOutputError) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record.OutputErrors++
	h.record.LastError = err.Error()
}

func (h *HistoryRecorder) save(record *domain.ProcessRecord) {
	defer close(h.saved)

	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()

	if err := h.store.RecordProcess(ctx, record); err != nil {
		logger.Warn("Failed to record process %s: %v", record.ProcessID, err)
		return
	}
	if h.keep > 0 {
		if err := h.store.PruneHistory(ctx, h.keep); err != nil {
			logger.Warn("Failed to prune process history: %v", err)
		}
	}
}
