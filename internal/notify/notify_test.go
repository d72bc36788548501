package notify

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	m, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return rc
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	rc := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := Subscribe(ctx, rc, "test:events", nil)
	require.NoError(t, err)
	defer sub.Close()

	got := make(chan Event, 1)
	done := make(chan struct{})
	go func() {
		sub.Run(ctx, func(ev Event) { got <- ev })
		close(done)
	}()

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	pub := NewRedisPublisher(rc, "test:events")
	require.NoError(t, pub.Publish(ctx, Event{Type: "moved", TaskID: "T1", ColumnID: "done", Version: 3, Actor: "user", At: at}))

	select {
	case ev := <-got:
		assert.Equal(t, "moved", ev.Type)
		assert.Equal(t, "T1", ev.TaskID)
		assert.Equal(t, "done", ev.ColumnID)
		assert.Equal(t, int64(3), ev.Version)
		assert.True(t, at.Equal(ev.At))
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit")
	}
}

func TestRunSkipsMalformedPayloads(t *testing.T) {
	rc := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := Subscribe(ctx, rc, "", nil)
	require.NoError(t, err)
	defer sub.Close()

	got := make(chan Event, 2)
	go sub.Run(ctx, func(ev Event) { got <- ev })

	require.NoError(t, rc.Publish(ctx, DefaultChannel, "{not json").Err())
	require.NoError(t, NewRedisPublisher(rc, "").Publish(ctx, Event{Type: "created", TaskID: "T2"}))

	select {
	case ev := <-got:
		assert.Equal(t, "T2", ev.TaskID)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestPublishFailsWhenRedisIsDown(t *testing.T) {
	m, err := miniredis.Run()
	require.NoError(t, err)
	rc := redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1})
	defer rc.Close()
	m.Close()

	err = NewRedisPublisher(rc, "x").Publish(context.Background(), Event{Type: "created"})
	assert.Error(t, err)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Event{}))
}
