package messaging

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/jsonpick/models"
)

func TestBroker_SendReturnsReply(t *testing.T) {
	b := NewBroker(time.Second)
	id := b.Register(HandlerFunc(func(_ context.Context, msg models.Message) (*models.Reply, error) {
		assert.Equal(t, models.ActionExtractJSON, msg.Action)
		return &models.Reply{Success: true}, nil
	}))

	reply, err := b.Send(context.Background(), id, models.Message{Action: models.ActionExtractJSON})
	require.NoError(t, err)
	assert.True(t, reply.Success)
	assert.Equal(t, 1, b.Len())
}

func TestBroker_SendTimesOut(t *testing.T) {
	b := NewBroker(20 * time.Millisecond)
	release := make(chan struct{})
	defer close(release)
	id := b.Register(HandlerFunc(func(ctx context.Context, _ models.Message) (*models.Reply, error) {
		<-release
		return &models.Reply{Success: true}, nil
	}))

	start := time.Now()
	_, err := b.Send(context.Background(), id, models.Message{Action: models.ActionExtractJSON})
	assert.ErrorIs(t, err, ErrNoResponse)
	assert.Less(t, time.Since(start), time.Second)
}

func TestBroker_NilReplyIsNoResponse(t *testing.T) {
	b := NewBroker(time.Second)
	id := b.Register(HandlerFunc(func(context.Context, models.Message) (*models.Reply, error) {
		return nil, nil
	}))

	_, err := b.Send(context.Background(), id, models.Message{Action: models.ActionDisableAutoMode})
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestBroker_HandlerError(t *testing.T) {
	boom := errors.New("boom")
	b := NewBroker(time.Second)
	id := b.Register(HandlerFunc(func(context.Context, models.Message) (*models.Reply, error) {
		return nil, boom
	}))

	_, err := b.Send(context.Background(), id, models.Message{})
	assert.ErrorIs(t, err, boom)
}

func TestBroker_CallerCancellation(t *testing.T) {
	b := NewBroker(0)
	id := b.Register(HandlerFunc(func(ctx context.Context, _ models.Message) (*models.Reply, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Send(ctx, id, models.Message{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrNoResponse)
}

func TestBroker_UnknownTab(t *testing.T) {
	b := NewBroker(time.Second)
	id := b.Register(HandlerFunc(func(context.Context, models.Message) (*models.Reply, error) {
		return &models.Reply{}, nil
	}))
	b.Unregister(id)

	_, err := b.Send(context.Background(), id, models.Message{})
	assert.ErrorIs(t, err, ErrUnknownTab)
	assert.ErrorIs(t, b.Notify(context.Background(), id, models.Message{}), ErrUnknownTab)
	assert.Equal(t, 0, b.Len())
}

func TestBroker_NotifyDelivers(t *testing.T) {
	var got atomic.Value
	b := NewBroker(time.Second)
	id := b.Register(HandlerFunc(func(_ context.Context, msg models.Message) (*models.Reply, error) {
		got.Store(msg.Action)
		return nil, nil
	}))

	require.NoError(t, b.Notify(context.Background(), id, models.Message{Action: models.ActionDisableAutoMode}))
	assert.Equal(t, models.ActionDisableAutoMode, got.Load())
}

func TestBroker_RegisterAssignsDistinctIDs(t *testing.T) {
	b := NewBroker(time.Second)
	h := HandlerFunc(func(context.Context, models.Message) (*models.Reply, error) { return nil, nil })
	assert.NotEqual(t, b.Register(h), b.Register(h))
}
