package checkpoint

import (
	"context"
	"time"

	"github.com/codegraph/knowledgegraph/internal/logging"
	"github.com/codegraph/knowledgegraph/internal/temporal"
)

// execute runs one job attempt to completion, terminal failure, or retry
// scheduling (§4.7 "Execution").
func (r *Runner) execute(ctx context.Context, job *Job) {
	r.mu.Lock()
	job.Attempts++
	job.Status = StatusRunning
	job.UpdatedAt = time.Now()
	r.mu.Unlock()
	_ = r.persist(ctx, job)

	checkpointID, err := r.engine.CreateCheckpoint(ctx, job.Payload.SeedEntities, temporal.CheckpointOptions{
		Reason: job.Payload.Reason,
		Hops:   job.Payload.Hops,
	})
	if err != nil || checkpointID == "" {
		r.fail(ctx, job, err)
		return
	}

	job.CheckpointID = checkpointID

	now := time.Now()
	if err := r.engine.AnnotateSessionRelationshipsWithCheckpoint(ctx, job.Payload.SessionID, checkpointID, nil, now); err != nil {
		logging.Warnf(logging.CategoryCheckpoint, "annotate completed checkpoint %s: %v", checkpointID, err)
	}

	r.mu.Lock()
	cb := r.rollback
	r.mu.Unlock()
	if cb != nil {
		r.invokeRollbackCallback(cb, *job, checkpointID)
	}

	linkErr := r.engine.CreateSessionCheckpointLink(ctx, job.Payload.SessionID, checkpointID, temporal.SessionCheckpointLinkMetadata{
		Reason:       job.Payload.Reason,
		Hops:         job.Payload.Hops,
		Attempts:     job.Attempts,
		SeedEntities: job.Payload.SeedEntities,
		JobID:        job.ID,
		Status:       "completed",
	})
	if linkErr != nil {
		logging.Warnf(logging.CategoryCheckpoint, "create session checkpoint link for %s: %v", checkpointID, linkErr)
	}

	r.mu.Lock()
	job.Status = StatusCompleted
	job.UpdatedAt = time.Now()
	r.mu.Unlock()

	_ = r.persist(ctx, job)
	if err := r.store.DeleteJob(ctx, job.ID); err != nil {
		logging.Warnf(logging.CategoryCheckpoint, "delete completed job row %s: %v", job.ID, err)
	}

	r.mu.Lock()
	delete(r.jobs, job.ID)
	r.mu.Unlock()

	r.notify(EventCompleted, *job)
}

func (r *Runner) invokeRollbackCallback(cb RollbackCallback, job Job, checkpointID string) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Errorf(logging.CategoryCheckpoint, "rollback callback panic for job %s: %v", job.ID, rec)
		}
	}()
	cb(job, checkpointID)
}

// fail handles a failed execution attempt: retry after a fixed delay while
// budget remains, otherwise dead-letter (§4.7 "Retry").
func (r *Runner) fail(ctx context.Context, job *Job, cause error) {
	maxAttempts := r.cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	r.mu.Lock()
	if cause != nil {
		job.LastError = cause.Error()
	} else {
		job.LastError = "createCheckpoint returned empty id"
	}
	attempts := job.Attempts
	r.mu.Unlock()

	if attempts < maxAttempts {
		r.scheduleRetry(ctx, job)
		return
	}

	r.deadLetter(ctx, job)
}

// scheduleRetry sets status=pending and arms a timer that re-queues the
// job after retryDelayMs (default 5s, floor 100ms).
func (r *Runner) scheduleRetry(ctx context.Context, job *Job) {
	r.mu.Lock()
	job.Status = StatusPending
	job.UpdatedAt = time.Now()
	r.mu.Unlock()
	_ = r.persist(ctx, job)
	r.notify(EventFailed, *job)

	delay := r.cfg.RetryDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}
	minDelay := r.cfg.MinRetryDelay
	if minDelay <= 0 {
		minDelay = 100 * time.Millisecond
	}
	if delay < minDelay {
		delay = minDelay
	}

	timer := time.AfterFunc(delay, func() {
		r.mu.Lock()
		delete(r.retryTimers, job.ID)
		shuttingDown := r.shuttingDown
		r.mu.Unlock()
		if shuttingDown {
			return
		}

		r.mu.Lock()
		job.Status = StatusQueued
		job.UpdatedAt = time.Now()
		r.queue = append(r.queue, job.ID)
		r.mu.Unlock()
		_ = r.persist(ctx, job)
		r.drain(ctx)
	})

	r.mu.Lock()
	r.retryTimers[job.ID] = timer
	r.mu.Unlock()
}

// deadLetter sets status=manual_intervention, persists, emits
// jobFailed/jobDeadLettered, and cleans up any partially-created checkpoint
// (§4.7 "Otherwise set status=manual_intervention ... attempt cleanup").
func (r *Runner) deadLetter(ctx context.Context, job *Job) {
	r.mu.Lock()
	job.Status = StatusManualIntervention
	job.UpdatedAt = time.Now()
	r.deadLetter[job.ID] = job
	r.mu.Unlock()

	_ = r.persist(ctx, job)
	r.notify(EventFailed, *job)
	r.notify(EventDeadLettered, *job)

	now := time.Now()
	if err := r.engine.AnnotateSessionRelationshipsWithCheckpoint(ctx, job.Payload.SessionID, "manual_intervention", nil, now); err != nil {
		logging.Warnf(logging.CategoryCheckpoint, "annotate dead-lettered session %s: %v", job.Payload.SessionID, err)
	}

	if job.CheckpointID == "" {
		return
	}
	if err := r.engine.SetCheckpointLinkStatus(ctx, job.Payload.SessionID, job.CheckpointID, "manual_intervention"); err != nil {
		// No link was ever created (e.g. failure happened before linking);
		// the checkpoint node itself is now orphaned, so delete it.
		if delErr := r.engine.DeleteOrphanCheckpoint(ctx, job.CheckpointID); delErr != nil {
			logging.Warnf(logging.CategoryCheckpoint, "delete orphan checkpoint %s: %v", job.CheckpointID, delErr)
		}
	}
}

// Idle resolves when the queue is empty, no job is running, and no retry
// timer is pending, or when timeout elapses first (§5 "idle(timeoutMs)
// for orderly shutdown").
func (r *Runner) Idle(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		r.mu.Lock()
		quiescent := len(r.queue) == 0 && len(r.running) == 0 && len(r.retryTimers) == 0
		r.mu.Unlock()
		if quiescent {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// Shutdown requests orderly shutdown: new enqueues are rejected and pending
// retry timers are stopped immediately. It does not wait for running jobs;
// Idle does that.
func (r *Runner) Shutdown() {
	r.mu.Lock()
	r.shuttingDown = true
	timers := make([]*time.Timer, 0, len(r.retryTimers))
	for _, t := range r.retryTimers {
		timers = append(timers, t)
	}
	r.retryTimers = map[string]*time.Timer{}
	r.mu.Unlock()

	for _, t := range timers {
		t.Stop()
	}
}

// DeadLettered returns a snapshot of jobs awaiting manual intervention.
func (r *Runner) DeadLettered() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Job, 0, len(r.deadLetter))
	for _, j := range r.deadLetter {
		out = append(out, *j)
	}
	return out
}
