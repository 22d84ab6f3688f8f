package services

import (
	"slices"
	"sync"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driving"
	"github.com/custodia-labs/harvester/internal/logger"
)

// listenerSet is an append-only listener collection safe for concurrent
// add and notify. Each notification iterates over a snapshot taken when the
// event is emitted, so a listener added mid-notification only sees later events.
type listenerSet struct {
	mu        sync.Mutex
	listeners []driving.Listener
}

func (s *listenerSet) add(l driving.Listener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *listenerSet) snapshot() []driving.Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.listeners)
}

func (s *listenerSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

func (s *listenerSet) notify(event string, fn func(driving.Listener)) {
	for _, l := range s.snapshot() {
		call(event, l, fn)
	}
}

// call isolates a panicking listener from the harvest and from other listeners.
func call(event string, l driving.Listener, fn func(driving.Listener)) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Listener %T panicked during %s: %v", l, event, r)
		}
	}()
	fn(l)
}

func (s *listenerSet) statusChanged(status domain.Status) {
	s.notify("status change", func(l driving.Listener) { l.OnStatusChange(status) })
}

func (s *listenerSet) dataProcessed(ref domain.DataReference) {
	s.notify("data processed", func(l driving.Listener) { l.OnDataProcessed(ref) })
}

func (s *listenerSet) inputError(err *domain.DataInputError) {
	s.notify("input error", func(l driving.Listener) { l.OnInputError(err) })
}

func (s *listenerSet) outputError(err *domain.DataOutputError) {
	s.notify("output error", func(l driving.Listener) { l.OnOutputError(err) })
}
