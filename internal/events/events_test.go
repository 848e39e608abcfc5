package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraph/knowledgegraph/internal/config"
)

func TestDispatchDecodesEnvelopeAndInvokesHandler(t *testing.T) {
	s := &Subscriber{}
	env := Envelope{Kind: KindSessionEnded, SessionID: "sess-1", SeedEntities: []string{"e1", "e2"}}
	b, err := json.Marshal(env)
	require.NoError(t, err)

	var got Envelope
	s.dispatch(context.Background(), func(_ context.Context, e Envelope) error {
		got = e
		return nil
	}, string(b))

	assert.Equal(t, env.Kind, got.Kind)
	assert.Equal(t, env.SessionID, got.SessionID)
	assert.Equal(t, env.SeedEntities, got.SeedEntities)
}

func TestDispatchDiscardsMalformedPayloadWithoutInvokingHandler(t *testing.T) {
	s := &Subscriber{}
	called := false
	s.dispatch(context.Background(), func(_ context.Context, e Envelope) error {
		called = true
		return nil
	}, "{not json")
	assert.False(t, called)
}

func TestDispatchSwallowsHandlerError(t *testing.T) {
	s := &Subscriber{}
	assert.NotPanics(t, func() {
		s.dispatch(context.Background(), func(_ context.Context, e Envelope) error {
			return errors.New("boom")
		}, `{"kind":"session:ended"}`)
	})
}

func TestDispatchRecoversFromHandlerPanic(t *testing.T) {
	s := &Subscriber{}
	assert.NotPanics(t, func() {
		s.dispatch(context.Background(), func(_ context.Context, e Envelope) error {
			panic("handler exploded")
		}, `{"kind":"session:ended"}`)
	})
}

func TestSubscriberCloseIsNilSafe(t *testing.T) {
	var s *Subscriber
	assert.NoError(t, s.Close())
}

func TestNewSubscriberDisabledReturnsNil(t *testing.T) {
	sub, err := NewSubscriber(config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, sub)
}
