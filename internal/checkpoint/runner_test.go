package checkpoint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifyIsolatesPanickingListener(t *testing.T) {
	r := &Runner{}
	called := false
	r.Subscribe(func(ev Event, job Job) { called = true })
	r.Subscribe(func(ev Event, job Job) { panic("listener exploded") })

	assert.NotPanics(t, func() { r.notify(EventEnqueued, Job{ID: "job_1"}) })
	assert.True(t, called)
}

func TestNotifyContinuesPastPanickingListenerToLaterOnes(t *testing.T) {
	r := &Runner{}
	secondCalled := false
	r.Subscribe(func(ev Event, job Job) { panic("boom") })
	r.Subscribe(func(ev Event, job Job) { secondCalled = true })

	r.notify(EventCompleted, Job{ID: "job_2"})
	assert.True(t, secondCalled)
}

func TestEnqueueRejectsWhenShuttingDown(t *testing.T) {
	r := &Runner{shuttingDown: true}
	id, err := r.Enqueue(context.Background(), Payload{SessionID: "s1"})
	assert.Error(t, err)
	assert.Empty(t, id)
}
