// Package checkpoint implements the Checkpoint Job Runner (C9): a durable
// at-least-once, bounded-concurrency queue that materializes checkpoints
// via the Temporal History Engine (C8) and retries failures with a
// dead-letter fallback, per spec §4.7.
package checkpoint

import (
	"time"

	"github.com/codegraph/knowledgegraph/internal/model"
)

// Status is the closed job-state set (§4.7 state machine).
type Status string

const (
	StatusQueued            Status = "queued"
	StatusPending           Status = "pending"
	StatusRunning           Status = "running"
	StatusCompleted         Status = "completed"
	StatusFailed            Status = "failed"
	StatusManualIntervention Status = "manual_intervention"
)

// Payload is the job's input: the seed entities and checkpoint parameters.
type Payload struct {
	SessionID    string
	SeedEntities []string
	Reason       model.CheckpointReason
	Hops         int
	Window       *time.Duration
}

// Job is one checkpoint request moving through the runner's state machine.
type Job struct {
	ID         string
	Payload    Payload
	Status     Status
	Attempts   int
	LastError  string
	QueuedAt   time.Time
	UpdatedAt  time.Time
	CheckpointID string // set once createCheckpoint succeeds
}

// dedupeSeeds removes duplicate entity ids while preserving first-seen order.
func dedupeSeeds(seeds []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(seeds))
	for _, s := range seeds {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
