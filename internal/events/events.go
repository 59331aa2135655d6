package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Type names a session change.
type Type string

const (
	SignedIn       Type = "SIGNED_IN"
	SignedOut      Type = "SIGNED_OUT"
	TokenRefreshed Type = "TOKEN_REFRESHED"
)

// Event is a session change of one browser.
type Event struct {
	Type    Type      `json:"type"`
	Browser string    `json:"browser"`
	UserID  string    `json:"user_id,omitempty"`
	At      time.Time `json:"at"`
}

// Broker fans session changes out to the subscribers of a browser.
type Broker interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe streams events until ctx is done, then closes the channel.
	Subscribe(ctx context.Context, browser string) (<-chan Event, error)
}

const subscriberBuffer = 8

// InMemory is a process-local broker for single-instance deployments.
type InMemory struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

// NewInMemory returns a broker with no subscribers.
func NewInMemory() *InMemory {
	return &InMemory{subs: make(map[string]map[chan Event]struct{})}
}

// Publish never blocks; a subscriber with a full buffer misses the event.
func (b *InMemory) Publish(_ context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[ev.Browser] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

// Subscribe registers a buffered channel for browser until ctx is done.
func (b *InMemory) Subscribe(ctx context.Context, browser string) (<-chan Event, error) {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	if b.subs[browser] == nil {
		b.subs[browser] = make(map[chan Event]struct{})
	}
	b.subs[browser][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[browser], ch)
		if len(b.subs[browser]) == 0 {
			delete(b.subs, browser)
		}
		close(ch)
		b.mu.Unlock()
	}()
	return ch, nil
}

// Redis implements the broker over Redis pub/sub so every instance sees every change.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis builds a broker publishing on prefix+browser channels.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "attendance:session:"
	}
	return &Redis{client: client, prefix: prefix}
}

// Publish sends ev as JSON on the browser's channel.
func (b *Redis) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.prefix+ev.Browser, payload).Err()
}

// Subscribe returns once the Redis subscription is confirmed.
func (b *Redis) Subscribe(ctx context.Context, browser string) (<-chan Event, error) {
	ps := b.client.Subscribe(ctx, b.prefix+browser)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
