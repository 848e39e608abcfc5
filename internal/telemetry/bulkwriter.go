// Package telemetry implements the bulk-write telemetry wrapper shared by
// the Graph Store Adapter (C6) and the Relational Store Adapter (C7),
// per §4.4's "Bulk telemetry" contract.
package telemetry

import (
	"sync"
	"time"
)

// BatchMode is the closed execution-mode set for a bulk batch.
type BatchMode string

const (
	ModeTransaction BatchMode = "transaction"
	ModeIndependent BatchMode = "independent"
)

// BatchRecord is one completed batch's telemetry snapshot.
type BatchRecord struct {
	BatchSize       int
	ContinueOnError bool
	DurationMs      int64
	StartedAt       time.Time
	FinishedAt      time.Time
	QueueDepth      int
	Mode            BatchMode
	Success         bool
	Error           string
}

// Config tunes the thresholds that decide whether a batch is retained in
// SlowBatches (§4.4).
type Config struct {
	SlowBatchThresholdMs   int64
	WarnOnLargeBatchSize   int
	QueueDepthWarningLimit int
	HistoryLimit           int
}

// DefaultConfig mirrors the documented spec defaults.
func DefaultConfig() Config {
	return Config{
		SlowBatchThresholdMs:   2000,
		WarnOnLargeBatchSize:   500,
		QueueDepthWarningLimit: 50,
		HistoryLimit:           200,
	}
}

// Metrics is the running aggregate exposed to operators; Snapshot returns a
// defensive copy so callers never observe a half-updated struct (§5 "Bulk-
// writer metrics are updated under a mutex; reads return defensive
// copies.").
type Metrics struct {
	ActiveBatches      int
	MaxConcurrentBatches int
	TotalBatches       int64
	TotalQueries       int64
	TotalDurationMs    int64
	MaxBatchSize       int
	MaxQueueDepth      int
	MaxDurationMs      int64
	AverageDurationMs  float64
	LastBatch          *BatchRecord
	History            []BatchRecord
	SlowBatches        []BatchRecord
}

// Subscriber observes every telemetry event. A panicking subscriber must
// never affect the batch result (§4.4, §7 "Bulk telemetry error").
type Subscriber func(BatchRecord)

// BulkWriter tracks in-flight and completed batch telemetry.
type BulkWriter struct {
	mu          sync.Mutex
	cfg         Config
	metrics     Metrics
	subscribers []Subscriber
}

// New builds a BulkWriter with the given threshold configuration.
func New(cfg Config) *BulkWriter {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 200
	}
	return &BulkWriter{cfg: cfg}
}

// Subscribe registers a telemetry observer.
func (w *BulkWriter) Subscribe(s Subscriber) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subscribers = append(w.subscribers, s)
}

// Begin marks one batch as started, returning a handle used to record its
// outcome. queueDepth is the caller-observed depth of pending work at batch
// start time.
func (w *BulkWriter) Begin(batchSize int, continueOnError bool, mode BatchMode, queueDepth int) *Handle {
	w.mu.Lock()
	w.metrics.ActiveBatches++
	if w.metrics.ActiveBatches > w.metrics.MaxConcurrentBatches {
		w.metrics.MaxConcurrentBatches = w.metrics.ActiveBatches
	}
	w.mu.Unlock()

	return &Handle{
		w:               w,
		batchSize:       batchSize,
		continueOnError: continueOnError,
		mode:            mode,
		queueDepth:      queueDepth,
		startedAt:       time.Now(),
	}
}

// Handle tracks one in-flight batch between Begin and Finish.
type Handle struct {
	w               *BulkWriter
	batchSize       int
	continueOnError bool
	mode            BatchMode
	queueDepth      int
	startedAt       time.Time
}

// Finish records the batch outcome and notifies subscribers.
func (h *Handle) Finish(success bool, queriesExecuted int, err error) BatchRecord {
	finished := time.Now()
	rec := BatchRecord{
		BatchSize:       h.batchSize,
		ContinueOnError: h.continueOnError,
		DurationMs:      finished.Sub(h.startedAt).Milliseconds(),
		StartedAt:       h.startedAt,
		FinishedAt:      finished,
		QueueDepth:      h.queueDepth,
		Mode:            h.mode,
		Success:         success,
	}
	if err != nil {
		rec.Error = err.Error()
	}

	h.w.mu.Lock()
	m := &h.w.metrics
	m.ActiveBatches--
	m.TotalBatches++
	m.TotalQueries += int64(queriesExecuted)
	m.TotalDurationMs += rec.DurationMs
	if h.batchSize > m.MaxBatchSize {
		m.MaxBatchSize = h.batchSize
	}
	if h.queueDepth > m.MaxQueueDepth {
		m.MaxQueueDepth = h.queueDepth
	}
	if rec.DurationMs > m.MaxDurationMs {
		m.MaxDurationMs = rec.DurationMs
	}
	if m.TotalBatches > 0 {
		m.AverageDurationMs = float64(m.TotalDurationMs) / float64(m.TotalBatches)
	}
	recCopy := rec
	m.LastBatch = &recCopy
	m.History = appendBounded(m.History, rec, h.w.cfg.HistoryLimit)

	if isSlow(rec, h.w.cfg) {
		m.SlowBatches = appendBounded(m.SlowBatches, rec, h.w.cfg.HistoryLimit)
	}
	subs := append([]Subscriber(nil), h.w.subscribers...)
	h.w.mu.Unlock()

	for _, s := range subs {
		notifySafely(s, rec)
	}

	return rec
}

func notifySafely(s Subscriber, rec BatchRecord) {
	defer func() { _ = recover() }()
	s(rec)
}

func isSlow(rec BatchRecord, cfg Config) bool {
	return !rec.Success ||
		rec.DurationMs >= cfg.SlowBatchThresholdMs ||
		rec.BatchSize >= cfg.WarnOnLargeBatchSize ||
		rec.QueueDepth >= cfg.QueueDepthWarningLimit
}

func appendBounded(s []BatchRecord, rec BatchRecord, limit int) []BatchRecord {
	s = append(s, rec)
	if limit > 0 && len(s) > limit {
		s = s[len(s)-limit:]
	}
	return s
}

// Snapshot returns a defensive copy of the current metrics.
func (w *BulkWriter) Snapshot() Metrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.metrics
	out.History = append([]BatchRecord(nil), w.metrics.History...)
	out.SlowBatches = append([]BatchRecord(nil), w.metrics.SlowBatches...)
	if w.metrics.LastBatch != nil {
		lb := *w.metrics.LastBatch
		out.LastBatch = &lb
	}
	return out
}
