package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisChannel implements Channel and Publisher over Redis pub/sub.
// Each petition gets its own topic, so subscribers only wake for rows
// that match their filter.
type RedisChannel struct {
	client *redis.Client
	prefix string
}

func NewRedisChannel(redisURL string) (*RedisChannel, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisChannel{client: client, prefix: "signatures:"}, nil
}

// NewRedisChannelWithClient creates a channel from an existing client.
func NewRedisChannelWithClient(client *redis.Client) *RedisChannel {
	return &RedisChannel{client: client, prefix: "signatures:"}
}

func (c *RedisChannel) topic(petitionID string) string {
	return c.prefix + petitionID
}

// Publish broadcasts an event to every subscriber of the petition's topic.
func (c *RedisChannel) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := c.client.Publish(ctx, c.topic(event.PetitionID), payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (c *RedisChannel) Subscribe(ctx context.Context, petitionID string, fn func(Event)) (Subscription, error) {
	pubsub := c.client.Subscribe(ctx, c.topic(petitionID))

	// Force the SUBSCRIBE round-trip so a failed connection surfaces
	// here instead of silently dropping events.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", c.topic(petitionID), err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		done:   make(chan struct{}),
	}
	go sub.dispatch(fn)
	return sub, nil
}

func (c *RedisChannel) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisChannel) Close() error {
	return c.client.Close()
}

type redisSubscription struct {
	pubsub *redis.PubSub
	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func (s *redisSubscription) dispatch(fn func(Event)) {
	defer close(s.done)
	for msg := range s.pubsub.Channel() {
		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Printf("realtime: drop malformed event on %s: %v", msg.Channel, err)
			continue
		}
		// The handler runs under the subscription mutex so Close can
		// guarantee no delivery happens after it returns.
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		fn(event)
		s.mu.Unlock()
	}
}

// Close unregisters the subscription. It blocks until any in-flight
// handler call finishes; no handler runs after Close returns.
func (s *redisSubscription) Close() error {
	s.mu.Lock()
	alreadyClosed := s.closed
	s.closed = true
	s.mu.Unlock()
	if alreadyClosed {
		return nil
	}
	err := s.pubsub.Close()
	<-s.done
	return err
}
