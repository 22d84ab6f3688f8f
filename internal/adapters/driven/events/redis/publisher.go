// Package redis publishes harvest process events to a Redis stream.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driving"
)

// DefaultStream is the stream process events are appended to.
const DefaultStream = "harvester:events"

// Defaults for the listener queue.
const (
	DefaultQueueSize      = 1024
	DefaultPublishTimeout = 2 * time.Second
)

// Event types.
const (
	EventStatus      = "status"
	EventData        = "data"
	EventInputError  = "input_error"
	EventOutputError = "output_error"
)

// Event is the JSON payload of one stream entry.
type Event struct {
	Type        string    `json:"type"`
	ProcessID   string    `json:"process_id"`
	Task        string    `json:"task,omitempty"`
	Status      string    `json:"status,omitempty"`
	RecordID    string    `json:"record_id,omitempty"`
	Source      string    `json:"source,omitempty"`
	Destination string    `json:"destination,omitempty"`
	Error       string    `json:"error,omitempty"`
	Time        time.Time `json:"time"`
}

// Publisher appends process events to a Redis stream.
//
// Listener events are queued and written by a single goroutine, so
// listener callbacks never wait on Redis. Events are dropped when the
// queue is full.
type Publisher struct {
	client  *redis.Client
	stream  string
	logger  *zap.Logger
	now     func() time.Time
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	done   chan struct{}
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithQueueSize sets how many events may wait for Redis.
func WithQueueSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.queue = make(chan Event, n)
		}
	}
}

// WithPublishTimeout bounds each XADD made for a queued event.
func WithPublishTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// NewPublisher creates a publisher and starts its writer. An empty stream
// uses DefaultStream. Close stops the writer.
func NewPublisher(client *redis.Client, stream string, logger *zap.Logger, opts ...Option) *Publisher {
	if stream == "" {
		stream = DefaultStream
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Publisher{
		client:  client,
		stream:  stream,
		logger:  logger,
		now:     time.Now,
		timeout: DefaultPublishTimeout,
		queue:   make(chan Event, DefaultQueueSize),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	go p.drain()
	return p
}

// Stream returns the stream key.
func (p *Publisher) Stream() string { return p.stream }

// Publish appends one event.
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"type": event.Type,
			"data": string(data),
		},
	}

	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to add to stream: %w", err)
	}

	p.logger.Debug("event published",
		zap.String("process_id", event.ProcessID),
		zap.String("type", event.Type),
		zap.String("stream", p.stream))

	return nil
}

// Close stops accepting events and waits until the queued ones are written.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return nil
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err := p.Publish(ctx, event)
		cancel()
		if err != nil {
			p.logger.Warn("event publish failed",
				zap.String("process_id", event.ProcessID),
				zap.String("type", event.Type),
				zap.Error(err))
		}
	}
}

// enqueue hands event to the writer without blocking.
func (p *Publisher) enqueue(event Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- event:
	default:
		p.logger.Warn("event dropped, queue full",
			zap.String("process_id", event.ProcessID),
			zap.String("type", event.Type))
	}
}

// Listener returns a listener publishing the events of proc.
// Its signature matches services.ListenerFactory.
func (p *Publisher) Listener(proc driving.ProcessInstance) driving.Listener {
	task := ""
	if t := proc.Task(); t != nil {
		task = t.Name()
	}
	return &listener{p: p, processID: proc.ID(), task: task}
}

type listener struct {
	p         *Publisher
	processID string
	task      string
}

func (l *listener) send(event Event) {
	event.ProcessID = l.processID
	event.Task = l.task
	event.Time = l.p.now().UTC()

	l.p.enqueue(event)
}

func (l *listener) OnStatusChange(status domain.Status) {
	l.send(Event{Type: EventStatus, Status: status.String()})
}

func (l *listener) OnDataProcessed(ref domain.DataReference) {
	l.send(Event{Type: EventData, RecordID: ref.ID(), Source: ref.SourceBrokerID()})
}

func (l *listener) OnInputError(err *domain.DataInputError) {
	l.send(Event{Type: EventInputError, Source: err.Source, Error: err.Error()})
}

func (l *listener) OnOutputError(err *domain.DataOutputError) {
	l.send(Event{
		Type:        EventOutputError,
		RecordID:    err.Reference.ID(),
		Destination: err.Destination,
		Error:       err.Error(),
	})
}
