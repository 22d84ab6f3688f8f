// Package prometheus exports harvest process metrics through a listener.
package prometheus

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driving"
)

// Outcome label values for harvester_processes_total.
const (
	OutcomeStarted   = "started"
	OutcomeCompleted = "completed"
	OutcomeAborted   = "aborted"
	OutcomeFailed    = "failed"
)

// Collector holds the harvest metrics.
type Collector struct {
	processes       *prometheus.CounterVec
	activeProcesses prometheus.Gauge
	records         *prometheus.CounterVec
	inputErrors     *prometheus.CounterVec
	outputErrors    *prometheus.CounterVec
	duration        *prometheus.HistogramVec
}

// NewCollector registers the harvest metrics with reg.
// A nil reg uses the default Prometheus registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		processes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_processes_total",
				Help: "Total number of harvest processes by outcome",
			},
			[]string{"task", "outcome"},
		),
		activeProcesses: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "harvester_active_processes",
				Help: "Number of harvest processes currently working",
			},
		),
		records: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_records_processed_total",
				Help: "Total number of records taken from sources",
			},
			[]string{"task"},
		),
		inputErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_input_errors_total",
				Help: "Total number of source failures",
			},
			[]string{"task"},
		),
		outputErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_output_errors_total",
				Help: "Total number of per-destination publish failures",
			},
			[]string{"task"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvester_process_duration_seconds",
				Help:    "Harvest process duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900, 3600},
			},
			[]string{"task"},
		),
	}
}

// Listener returns a listener recording metrics for p.
// Its signature matches services.ListenerFactory.
func (c *Collector) Listener(p driving.ProcessInstance) driving.Listener {
	task := ""
	if t := p.Task(); t != nil {
		task = t.Name()
	}
	return &listener{c: c, task: task, now: time.Now}
}

// listener tracks one process.
type listener struct {
	c    *Collector
	task string
	now  func() time.Time

	mu      sync.Mutex
	started time.Time
	aborted bool
	failed  bool
}

func (l *listener) OnStatusChange(status domain.Status) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch status {
	case domain.StatusWorking:
		l.started = l.now()
		l.c.activeProcesses.Inc()
		l.c.processes.WithLabelValues(l.task, OutcomeStarted).Inc()
	case domain.StatusAborting:
		l.aborted = true
	case domain.StatusCompleted:
		if l.started.IsZero() {
			return
		}
		l.c.activeProcesses.Dec()
		l.c.duration.WithLabelValues(l.task).Observe(l.now().Sub(l.started).Seconds())
		outcome := OutcomeCompleted
		switch {
		case l.aborted:
			outcome = OutcomeAborted
		case l.failed:
			outcome = OutcomeFailed
		}
		l.c.processes.WithLabelValues(l.task, outcome).Inc()
	}
}

func (l *listener) OnDataProcessed(domain.DataReference) {
	l.c.records.WithLabelValues(l.task).Inc()
}

func (l *listener) OnInputError(*domain.DataInputError) {
	l.mu.Lock()
	l.failed = true
	l.mu.Unlock()
	l.c.inputErrors.WithLabelValues(l.task).Inc()
}

func (l *listener) OnOutputError(*domain.DataOutputError) {
	l.c.outputErrors.WithLabelValues(l.task).Inc()
}
