// Package notify broadcasts board changes to other processes over Redis pub/sub.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const DefaultChannel = "lazyboard:events"

// Event describes a committed change to one task.
type Event struct {
	Type     string    `json:"type"`
	TaskID   string    `json:"taskId"`
	ColumnID string    `json:"columnId,omitempty"`
	Version  int64     `json:"version,omitempty"`
	Actor    string    `json:"actor,omitempty"`
	At       time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

type RedisPublisher struct {
	rc      *redis.Client
	channel string
}

func NewRedisPublisher(rc *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{rc: rc, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.rc.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", p.channel, err)
	}
	return nil
}

// Subscriber delivers events published on a channel.
type Subscriber struct {
	sub     *redis.PubSub
	channel string
	log     *logrus.Entry
}

// Subscribe returns once Redis has confirmed the subscription, so events
// published after it returns are not missed.
func Subscribe(ctx context.Context, rc *redis.Client, channel string, log *logrus.Entry) (*Subscriber, error) {
	if channel == "" {
		channel = DefaultChannel
	}
	if log == nil {
		log = logrus.WithField("component", "notify")
	}
	sub := rc.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}
	return &Subscriber{sub: sub, channel: channel, log: log}, nil
}

// Run calls handle for each event until ctx is done or the subscription closes.
func (s *Subscriber) Run(ctx context.Context, handle func(Event)) {
	ch := s.sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				s.log.Debug("subscription channel closed")
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				s.log.WithError(err).WithField("channel", s.channel).Warn("unable to parse event")
				continue
			}
			handle(ev)
		}
	}
}

func (s *Subscriber) Close() error {
	return s.sub.Close()
}
