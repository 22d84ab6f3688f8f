// Package memory provides in-memory implementations of driven store ports,
// for tests and runs that do not persist history.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

// Ensure ProcessStore implements the interface.
var _ driven.ProcessStore = (*ProcessStore)(nil)

// ProcessStore is an in-memory implementation of driven.ProcessStore.
type ProcessStore struct {
	mu      sync.RWMutex
	records map[string]domain.ProcessRecord
}

// NewProcessStore creates a new in-memory process store.
func NewProcessStore() *ProcessStore {
	return &ProcessStore{
		records: make(map[string]domain.ProcessRecord),
	}
}

// RecordProcess stores or replaces a record.
func (s *ProcessStore) RecordProcess(_ context.Context, record *domain.ProcessRecord) error {
	if record == nil || record.ProcessID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ProcessID] = *record
	return nil
}

// GetProcess returns the record for a process.
func (s *ProcessStore) GetProcess(_ context.Context, processID string) (*domain.ProcessRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[processID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &record, nil
}

// ListHistory returns up to limit records, most recent first.
// A non-positive limit returns every record.
func (s *ProcessStore) ListHistory(_ context.Context, limit int) ([]domain.ProcessRecord, error) {
	return s.list(func(domain.ProcessRecord) bool { return true }, limit), nil
}

// ListTaskHistory returns up to limit records for taskName, most recent first.
func (s *ProcessStore) ListTaskHistory(_ context.Context, taskName string, limit int) ([]domain.ProcessRecord, error) {
	return s.list(func(r domain.ProcessRecord) bool { return r.TaskName == taskName }, limit), nil
}

// PruneHistory keeps the most recent keep records.
func (s *ProcessStore) PruneHistory(_ context.Context, keep int) error {
	if keep < 0 {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sorted := s.sortedLocked()
	for _, r := range sorted[min(keep, len(sorted)):] {
		delete(s.records, r.ProcessID)
	}
	return nil
}

func (s *ProcessStore) list(keep func(domain.ProcessRecord) bool, limit int) []domain.ProcessRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.ProcessRecord
	for _, r := range s.sortedLocked() {
		if !keep(r) {
			continue
		}
		result = append(result, r)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result
}

func (s *ProcessStore) sortedLocked() []domain.ProcessRecord {
	result := make([]domain.ProcessRecord, 0, len(s.records))
	for _, r := range s.records {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StartedAt.Equal(result[j].StartedAt) {
			return result[i].ProcessID > result[j].ProcessID
		}
		return result[i].StartedAt.After(result[j].StartedAt)
	})
	return result
}
