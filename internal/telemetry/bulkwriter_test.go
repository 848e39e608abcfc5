package telemetry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBeginFinishUpdatesAggregateMetrics(t *testing.T) {
	w := New(DefaultConfig())
	h := w.Begin(10, false, ModeTransaction, 3)
	rec := h.Finish(true, 10, nil)

	assert.True(t, rec.Success)
	snap := w.Snapshot()
	assert.EqualValues(t, 1, snap.TotalBatches)
	assert.EqualValues(t, 10, snap.TotalQueries)
	assert.Equal(t, 10, snap.MaxBatchSize)
	assert.Equal(t, 0, snap.ActiveBatches)
	assert.NotNil(t, snap.LastBatch)
}

func TestFinishRecordsErrorMessage(t *testing.T) {
	w := New(DefaultConfig())
	h := w.Begin(5, true, ModeIndependent, 0)
	rec := h.Finish(false, 2, errors.New("boom"))
	assert.Equal(t, "boom", rec.Error)
	assert.False(t, rec.Success)
}

func TestIsSlowFlagsFailureLargeBatchOrDeepQueue(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, isSlow(BatchRecord{Success: false}, cfg))
	assert.True(t, isSlow(BatchRecord{Success: true, DurationMs: 2000}, cfg))
	assert.True(t, isSlow(BatchRecord{Success: true, BatchSize: 500}, cfg))
	assert.True(t, isSlow(BatchRecord{Success: true, QueueDepth: 50}, cfg))
	assert.False(t, isSlow(BatchRecord{Success: true, DurationMs: 1, BatchSize: 1, QueueDepth: 1}, cfg))
}

func TestSlowBatchIsRecordedInSlowBatches(t *testing.T) {
	w := New(DefaultConfig())
	h := w.Begin(1000, false, ModeTransaction, 0)
	h.Finish(true, 1, nil)

	snap := w.Snapshot()
	assert.Len(t, snap.SlowBatches, 1)
}

func TestAppendBoundedTrimsToLimit(t *testing.T) {
	var s []BatchRecord
	for i := 0; i < 5; i++ {
		s = appendBounded(s, BatchRecord{BatchSize: i}, 3)
	}
	assert.Len(t, s, 3)
	assert.Equal(t, 2, s[0].BatchSize)
	assert.Equal(t, 4, s[2].BatchSize)
}

func TestAppendBoundedUnboundedWhenLimitZero(t *testing.T) {
	var s []BatchRecord
	for i := 0; i < 5; i++ {
		s = appendBounded(s, BatchRecord{BatchSize: i}, 0)
	}
	assert.Len(t, s, 5)
}

func TestSnapshotReturnsDefensiveCopy(t *testing.T) {
	w := New(DefaultConfig())
	h := w.Begin(1, false, ModeTransaction, 0)
	h.Finish(true, 1, nil)

	snap := w.Snapshot()
	snap.History[0].BatchSize = 999
	snap2 := w.Snapshot()
	assert.NotEqual(t, 999, snap2.History[0].BatchSize)
}

func TestSubscriberPanicDoesNotPropagate(t *testing.T) {
	w := New(DefaultConfig())
	w.Subscribe(func(BatchRecord) { panic("subscriber exploded") })

	h := w.Begin(1, false, ModeTransaction, 0)
	assert.NotPanics(t, func() { h.Finish(true, 1, nil) })
}

func TestNewAppliesDefaultHistoryLimit(t *testing.T) {
	w := New(Config{})
	assert.Equal(t, 200, w.cfg.HistoryLimit)
}
