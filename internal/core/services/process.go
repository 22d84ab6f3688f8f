package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
	"github.com/custodia-labs/harvester/internal/core/ports/driving"
	"github.com/custodia-labs/harvester/internal/logger"
)

// Ensure Process implements the interface.
var _ driving.ProcessInstance = (*Process)(nil)

// Process runs one task on its own goroutine.
//
// Lifecycle: submitted -> working -> completed, with aborting entered only
// from working. The status is derived from three flags (completed, aborting,
// alive) that are read and written under mu only.
//
// Status events are sequenced: each transition takes a sequence number
// under mu and emitStatus drops events older than the last one delivered,
// so listeners never observe a status after completed. Lock order is
// emitMu before mu. Listener callbacks must not call Begin or Abort
// synchronously from OnStatusChange.
type Process struct {
	id        string
	task      *driven.Task
	listeners listenerSet

	// runCtx is passed to brokers. Abort does not cancel it, so an
	// in-flight publish finishes on its own.
	runCtx context.Context

	// abortCtx is polled by the harvest loop between records.
	abortCtx context.Context
	cancel   context.CancelFunc

	mu        sync.Mutex
	alive     bool
	aborting  bool
	completed bool
	seq       uint64

	emitMu  sync.Mutex
	emitted uint64

	done chan struct{}
}

func newProcess(runCtx context.Context, id string, task *driven.Task) *Process {
	if runCtx == nil {
		runCtx = context.Background()
	}
	abortCtx, cancel := context.WithCancel(context.Background())
	return &Process{
		id:       id,
		task:     task,
		runCtx:   runCtx,
		abortCtx: abortCtx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// ID returns the process identifier.
func (p *Process) ID() string { return p.id }

// Task returns the task being harvested.
func (p *Process) Task() *driven.Task { return p.task }

// Title returns "source --> [destinations]".
func (p *Process) Title() string { return p.task.String() }

// AddListener registers a listener. A listener added after Begin receives
// only events emitted after registration.
func (p *Process) AddListener(l driving.Listener) {
	p.listeners.add(l)
}

// Status returns a consistent snapshot of the lifecycle state.
func (p *Process) Status() domain.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statusLocked()
}

func (p *Process) statusLocked() domain.Status {
	switch {
	case p.completed:
		return domain.StatusCompleted
	case p.aborting:
		return domain.StatusAborting
	case p.alive:
		return domain.StatusWorking
	default:
		return domain.StatusSubmitted
	}
}

// Begin starts the harvest goroutine.
// The working status is delivered to listeners before Begin returns.
func (p *Process) Begin() error {
	// emitMu is taken first so that an Abort racing this call emits
	// aborting only after working has been delivered.
	p.emitMu.Lock()
	p.mu.Lock()
	if status := p.statusLocked(); status != domain.StatusSubmitted {
		p.mu.Unlock()
		p.emitMu.Unlock()
		return &domain.InvalidStateError{Op: "beginning", Status: status}
	}
	p.alive = true
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	logger.Info("Started harvest: %s", p.Title())
	p.emitStatusLocked(seq, domain.StatusWorking)
	p.emitMu.Unlock()

	go p.run()
	return nil
}

// Abort requests cooperative cancellation. The loop stops before the next record.
func (p *Process) Abort() error {
	p.mu.Lock()
	if status := p.statusLocked(); status != domain.StatusWorking {
		p.mu.Unlock()
		return &domain.InvalidStateError{Op: "aborting", Status: status}
	}
	p.aborting = true
	p.cancel()
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	logger.Info("Aborting process: %s", p.Title())
	p.emitStatus(seq, domain.StatusAborting)
	return nil
}

// Done is closed once the process reaches completed.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the process completes or ctx is done.
func (p *Process) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Process) emitStatus(seq uint64, status domain.Status) {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()
	p.emitStatusLocked(seq, status)
}

func (p *Process) emitStatusLocked(seq uint64, status domain.Status) {
	if seq <= p.emitted {
		return
	}
	p.emitted = seq
	p.listeners.statusChanged(status)
}

// run is the harvest loop. It runs once, on its own goroutine.
func (p *Process) run() {
	defer p.finish()

	destinations := p.task.Destinations()
	if len(destinations) == 0 {
		logger.Debug("No destinations for %s; nothing to harvest", p.Title())
		return
	}

	source := p.task.Source()
	for {
		if p.abortCtx.Err() != nil {
			logger.Debug("Abort observed during %s", p.Title())
			return
		}

		more, err := source.HasNext(p.runCtx)
		if err != nil {
			p.inputFailed(source, err)
			return
		}
		if !more {
			return
		}

		ref, err := source.Next(p.runCtx)
		if err != nil {
			p.inputFailed(source, err)
			return
		}

		p.listeners.dataProcessed(ref)
		for _, d := range destinations {
			if err := p.publish(d, ref); err != nil {
				logger.Warn("Failed harvesting %s during %s: %v", ref.SourceURI(), p.Title(), err)
				p.listeners.outputError(domain.NewDataOutputError(d.String(), ref, err))
				continue
			}
			logger.Debug("Harvested %s during %s", ref.SourceURI(), p.Title())
		}
	}
}

// publish offers one record to one destination. A panicking broker is
// reported as an output error for that destination only.
func (p *Process) publish(d driven.OutputBroker, ref domain.DataReference) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("publish panic: %v", r)
		}
	}()
	return d.Publish(p.runCtx, ref)
}

func (p *Process) inputFailed(source driven.InputBroker, err error) {
	logger.Error("Error harvesting of %s: %v", p.Title(), err)
	p.listeners.inputError(domain.NewDataInputError(source.String(), err))
}

// finish runs exactly once on every exit path of run.
func (p *Process) finish() {
	if r := recover(); r != nil {
		p.inputFailed(p.task.Source(), fmt.Errorf("harvest panic: %v", r))
	}

	// Task.Close recovers broker panics, so completion is always reached.
	if err := p.task.Close(); err != nil {
		logger.Warn("Closing brokers of %s: %v", p.Title(), err)
	}

	p.mu.Lock()
	p.aborting = false
	p.completed = true
	p.alive = false
	p.seq++
	seq := p.seq
	p.mu.Unlock()
	p.cancel()

	logger.Info("Completed harvest: %s", p.Title())
	p.emitStatus(seq, domain.StatusCompleted)
	close(p.done)
}

// String describes the process for logs.
func (p *Process) String() string {
	return fmt.Sprintf("PROCESS:: id: %s, status: %s, title: %s", p.id, p.Status(), p.Title())
}
