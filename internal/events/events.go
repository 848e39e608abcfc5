// Package events implements the session/agent event contract of §6.4: a
// Redis Pub/Sub subscriber over the JSON-encoded `agent:events` channel,
// feeding the Checkpoint Job Runner (C9) on session commits.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/codegraph/knowledgegraph/internal/config"
	"github.com/codegraph/knowledgegraph/internal/logging"
)

// Kind is the closed set of session-lifecycle events the core accepts
// (§6.4).
type Kind string

const (
	KindSessionCreated Kind = "session:created"
	KindSessionJoined  Kind = "session:joined"
	KindSessionLeft    Kind = "session:left"
	KindSessionEnded   Kind = "session:ended"
	KindTaskStarted    Kind = "task:started"
	KindTaskCompleted  Kind = "task:completed"
	KindTaskFailed     Kind = "task:failed"
	KindStateUpdated   Kind = "state:updated"
)

// Envelope is the wire shape of one published event, carrying the session
// metadata that gets forwarded into SessionRelationship fields.
type Envelope struct {
	Kind            Kind                   `json:"kind"`
	SessionID       string                 `json:"sessionId"`
	SequenceNumber  int64                  `json:"sequenceNumber"`
	Actor           string                 `json:"actor"`
	Timestamp       time.Time              `json:"timestamp"`
	ChangeSetID     string                 `json:"changeSetId,omitempty"`
	SeedEntities    []string               `json:"seedEntities,omitempty"`
	Payload         map[string]interface{} `json:"payload,omitempty"`
}

// Handler processes one event. A handler that returns an error is logged
// but never blocks the subscriber loop (listener isolation, §4.7/§5).
type Handler func(context.Context, Envelope) error

// Subscriber consumes the agent:events Redis channel.
type Subscriber struct {
	client  *redis.Client
	channel string
}

// NewSubscriber connects to Redis per cfg. Returns nil, nil when the
// coordination channel is disabled (§6.3's "(optional)").
func NewSubscriber(cfg config.RedisConfig) (*Subscriber, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	channel := cfg.Channel
	if channel == "" {
		channel = "agent:events"
	}
	return &Subscriber{client: client, channel: channel}, nil
}

// Run subscribes to the channel and dispatches each message to handler
// until ctx is cancelled. Malformed payloads and handler errors are logged
// and skipped, never propagated (listener isolation).
func (s *Subscriber) Run(ctx context.Context, handler Handler) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.dispatch(ctx, handler, msg.Payload)
		}
	}
}

func (s *Subscriber) dispatch(ctx context.Context, handler Handler, payload string) {
	defer func() {
		if r := recover(); r != nil {
			logging.Errorf(logging.CategoryEvents, "panic handling agent:events message: %v", r)
		}
	}()

	var env Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		logging.Warnf(logging.CategoryEvents, "discarding malformed agent:events payload: %v", err)
		return
	}
	if err := handler(ctx, env); err != nil {
		logging.Warnf(logging.CategoryEvents, "agent:events handler error: %v", err)
	}
}

// Close releases the underlying Redis client.
func (s *Subscriber) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
