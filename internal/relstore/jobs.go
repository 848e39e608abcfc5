package relstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/codegraph/knowledgegraph/internal/logging"
	"github.com/codegraph/knowledgegraph/internal/model"
)

// PersistJob upserts a checkpoint job row by its JobID primary key, the
// durable backing for the Checkpoint Job Runner (C9)'s queue (§4.7).
func (s *Store) PersistJob(ctx context.Context, job *SessionCheckpointJob) error {
	timer := logging.StartTimer(logging.CategoryRelStore, "PersistJob")
	defer timer.Stop()

	job.UpdatedAt = time.Now()
	err := s.db.WithContext(ctx).Clauses(onConflictUpdate("job_id")).Create(job).Error
	if err != nil {
		return model.WrapError(model.ErrQueryFailed, "persist checkpoint job "+job.JobID, err)
	}
	return nil
}

// DeleteJob removes a completed job's persisted row (§4.7 "delete the
// persisted row" on successful completion).
func (s *Store) DeleteJob(ctx context.Context, jobID string) error {
	err := s.db.WithContext(ctx).Delete(&SessionCheckpointJob{}, "job_id = ?", jobID).Error
	if err != nil {
		return model.WrapError(model.ErrQueryFailed, "delete checkpoint job "+jobID, err)
	}
	return nil
}

// LoadJobsByStatus fetches every job row in the given statuses, ordered by
// QueuedAt, for startup hydration (§4.7).
func (s *Store) LoadJobsByStatus(ctx context.Context, statuses ...string) ([]SessionCheckpointJob, error) {
	var jobs []SessionCheckpointJob
	err := s.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("queued_at ASC").
		Find(&jobs).Error
	if err != nil {
		return nil, model.WrapError(model.ErrQueryFailed, "load checkpoint jobs by status", err)
	}
	return jobs, nil
}

// GetJob fetches a single job row, or (nil, nil) if absent.
func (s *Store) GetJob(ctx context.Context, jobID string) (*SessionCheckpointJob, error) {
	var job SessionCheckpointJob
	err := s.db.WithContext(ctx).First(&job, "job_id = ?", jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, model.WrapError(model.ErrQueryFailed, "get checkpoint job "+jobID, err)
	}
	return &job, nil
}
