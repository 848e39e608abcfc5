package checkpoint

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/codegraph/knowledgegraph/internal/config"
	"github.com/codegraph/knowledgegraph/internal/logging"
	"github.com/codegraph/knowledgegraph/internal/model"
	"github.com/codegraph/knowledgegraph/internal/relstore"
	"github.com/codegraph/knowledgegraph/internal/temporal"
)

// Event is the closed set of lifecycle notifications emitted to listeners.
type Event string

const (
	EventEnqueued    Event = "jobEnqueued"
	EventCompleted   Event = "jobCompleted"
	EventFailed      Event = "jobFailed"
	EventDeadLettered Event = "jobDeadLettered"
)

// Listener observes runner lifecycle events. A panicking listener is
// recovered and logged (§4.7 "Listeners are isolated"). Listeners run
// synchronously on the notifying goroutine, so a slow listener delays it.
type Listener func(Event, Job)

// RollbackCallback is registered per job and invoked once a checkpoint
// completes successfully, giving the caller an opportunity to register
// rollback capabilities against the new checkpoint.
type RollbackCallback func(job Job, checkpointID string)

// Runner is the bounded-concurrency, durable checkpoint job queue (C9).
type Runner struct {
	mu           sync.Mutex
	jobs         map[string]*Job
	queue        []string // job ids, FIFO
	running      map[string]bool
	deadLetter   map[string]*Job
	retryTimers  map[string]*time.Timer
	listeners    []Listener
	rollback     RollbackCallback
	shuttingDown bool
	hydrated     bool

	sem    *semaphore.Weighted
	cfg    config.CheckpointConfig
	store  *relstore.Store
	engine *temporal.Engine
}

// New builds a Runner bounded by cfg.Concurrency (default 1).
func New(store *relstore.Store, engine *temporal.Engine, cfg config.CheckpointConfig) *Runner {
	concurrency := int64(cfg.Concurrency)
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Runner{
		jobs:        map[string]*Job{},
		running:     map[string]bool{},
		deadLetter:  map[string]*Job{},
		retryTimers: map[string]*time.Timer{},
		sem:         semaphore.NewWeighted(concurrency),
		cfg:         cfg,
		store:       store,
		engine:      engine,
	}
}

// Subscribe registers a lifecycle listener.
func (r *Runner) Subscribe(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// SetRollbackCallback registers the optional rollback-capabilities hook
// invoked on job completion.
func (r *Runner) SetRollbackCallback(cb RollbackCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollback = cb
}

// Hydrate loads persisted rows on startup or on first persistence attach,
// at most once per Runner instance (§4.7 "Hydration is at-most-once per
// attachment").
func (r *Runner) Hydrate(ctx context.Context) error {
	r.mu.Lock()
	if r.hydrated {
		r.mu.Unlock()
		return nil
	}
	r.hydrated = true
	r.mu.Unlock()

	active, err := r.store.LoadJobsByStatus(ctx, string(StatusQueued), string(StatusPending), string(StatusRunning))
	if err != nil {
		return err
	}
	for _, row := range active {
		job := fromRow(row)
		r.mu.Lock()
		r.jobs[job.ID] = job
		r.queue = append(r.queue, job.ID)
		r.mu.Unlock()
	}

	deadLettered, err := r.store.LoadJobsByStatus(ctx, string(StatusManualIntervention))
	if err != nil {
		return err
	}
	r.mu.Lock()
	for _, row := range deadLettered {
		job := fromRow(row)
		r.deadLetter[job.ID] = job
	}
	r.mu.Unlock()

	r.drain(ctx)
	return nil
}

func fromRow(row relstore.SessionCheckpointJob) *Job {
	job := &Job{
		ID:        row.JobID,
		Status:    Status(row.Status),
		Attempts:  row.Attempts,
		LastError: row.LastError,
		QueuedAt:  row.QueuedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if v, ok := row.Payload["sessionId"].(string); ok {
		job.Payload.SessionID = v
	}
	if v, ok := row.Payload["reason"].(string); ok {
		job.Payload.Reason = model.CheckpointReason(v)
	}
	if v, ok := row.Payload["hops"].(float64); ok {
		job.Payload.Hops = int(v)
	}
	if raw, ok := row.Payload["seedEntities"].([]interface{}); ok {
		for _, s := range raw {
			if str, ok := s.(string); ok {
				job.Payload.SeedEntities = append(job.Payload.SeedEntities, str)
			}
		}
	}
	return job
}

// Enqueue dedupes the payload's seed entities, persists a queued snapshot,
// emits jobEnqueued, annotates the session's relationships with the
// pending checkpointId, and attempts to drain (§4.7).
func (r *Runner) Enqueue(ctx context.Context, payload Payload) (string, error) {
	r.mu.Lock()
	if r.shuttingDown {
		r.mu.Unlock()
		return "", model.NewError(model.ErrInvalidParameter, "checkpoint runner: shutdown requested, rejecting new enqueues")
	}
	r.mu.Unlock()

	payload.SeedEntities = dedupeSeeds(payload.SeedEntities)
	now := time.Now()
	job := &Job{
		ID:       "job_" + uuid.NewString(),
		Payload:  payload,
		Status:   StatusQueued,
		Attempts: 0,
		QueuedAt: now,
		UpdatedAt: now,
	}

	if err := r.persist(ctx, job); err != nil {
		return "", err
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.queue = append(r.queue, job.ID)
	r.mu.Unlock()

	r.notify(EventEnqueued, *job)

	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := r.engine.AnnotateSessionRelationshipsWithCheckpoint(bgCtx, payload.SessionID, "pending", nil, now); err != nil {
			logging.Warnf(logging.CategoryCheckpoint, "annotate pending checkpoint for session %s: %v", payload.SessionID, err)
		}
	}()

	r.drain(ctx)
	return job.ID, nil
}

// drain pulls queued jobs and launches bounded-concurrency execution until
// either the queue empties or every semaphore slot is held.
func (r *Runner) drain(ctx context.Context) {
	for {
		r.mu.Lock()
		if len(r.queue) == 0 {
			r.mu.Unlock()
			return
		}
		if !r.sem.TryAcquire(1) {
			r.mu.Unlock()
			return
		}
		id := r.queue[0]
		r.queue = r.queue[1:]
		job, ok := r.jobs[id]
		if !ok || job.Status != StatusQueued {
			r.sem.Release(1)
			r.mu.Unlock()
			continue
		}
		r.running[id] = true
		r.mu.Unlock()

		go func(j *Job) {
			defer r.sem.Release(1)
			defer func() {
				r.mu.Lock()
				delete(r.running, j.ID)
				r.mu.Unlock()
			}()
			r.execute(ctx, j)
			r.drain(ctx)
		}(job)
	}
}

func (r *Runner) persist(ctx context.Context, job *Job) error {
	row := relstore.SessionCheckpointJob{
		JobID:     job.ID,
		SessionID: job.Payload.SessionID,
		Payload: relstore.JSONMap{
			"sessionId":    job.Payload.SessionID,
			"seedEntities": job.Payload.SeedEntities,
			"reason":       string(job.Payload.Reason),
			"hops":         job.Payload.Hops,
		},
		Status:    string(job.Status),
		Attempts:  job.Attempts,
		LastError: job.LastError,
		QueuedAt:  job.QueuedAt,
	}
	return r.store.PersistJob(ctx, &row)
}

func (r *Runner) notify(ev Event, job Job) {
	r.mu.Lock()
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.Unlock()

	for _, l := range listeners {
		r.notifyOne(l, ev, job)
	}
}

func (r *Runner) notifyOne(l Listener, ev Event, job Job) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Errorf(logging.CategoryCheckpoint, "listener panic on %s: %v", ev, rec)
		}
	}()
	l(ev, job)
}
