// Package redisbus carries edfsm bus events over Redis pub/sub, so the
// states of an instance can react to and emit events shared between
// processes.
package redisbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/librescoot/edfsm"
	"github.com/pkg/errors"
	backend "github.com/redis/go-redis/v9"
)

// Bus implements edfsm.InputBus and edfsm.OutputBus on Redis pub/sub.
// Every event maps to the channel prefix+event. Payloads travel as JSON;
// listeners receive the decoded value (maps, slices, float64, string,
// bool or nil).
type Bus struct {
	client    *backend.Client
	ownClient bool
	prefix    string
	logger    *slog.Logger
	confirm   time.Duration

	mu        sync.Mutex
	pubsub    *backend.PubSub
	listeners map[edfsm.EventID][]*edfsm.Listener
	pending   map[string][]chan struct{} // On calls waiting for SUBSCRIBE confirmation
	wg        sync.WaitGroup
}

type Option func(*Bus)

// WithPrefix sets the channel prefix
func WithPrefix(prefix string) Option {
	return func(b *Bus) {
		b.prefix = prefix
	}
}

// WithLogger sets the logger for transport errors
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// WithSubscribeTimeout bounds how long On waits for Redis to confirm a
// new channel subscription
func WithSubscribeTimeout(d time.Duration) Option {
	return func(b *Bus) {
		b.confirm = d
	}
}

// New connects to the Redis server at address. Close releases the client.
func New(address, password string, db int, opts ...Option) *Bus {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	b := NewFromClient(client, opts...)
	b.ownClient = true
	return b
}

// NewFromClient creates a bus on an existing client. Close leaves the
// client open.
func NewFromClient(client *backend.Client, opts ...Option) *Bus {
	b := &Bus{
		client:    client,
		prefix:    "edfsm:event:",
		logger:    slog.Default(),
		confirm:   5 * time.Second,
		listeners: make(map[edfsm.EventID][]*edfsm.Listener),
		pending:   make(map[string][]chan struct{}),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Channel returns the Redis channel event travels on
func (b *Bus) Channel(event edfsm.EventID) string {
	return b.prefix + string(event)
}

// Emit publishes payload and reports whether any subscriber received it
func (b *Bus) Emit(event edfsm.EventID, payload any) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("failed to encode payload", "event", event, "err", err)
		return false
	}

	n, err := b.client.Publish(context.Background(), b.Channel(event), data).Result()
	if err != nil {
		b.logger.Error("failed to publish", "event", event, "err", err)
		return false
	}
	return n > 0
}

// On subscribes l to event. The channel is subscribed on Redis with the
// first listener of the event, and On returns once Redis has confirmed the
// subscription, so events published afterwards are delivered.
func (b *Bus) On(event edfsm.EventID, l *edfsm.Listener) {
	b.mu.Lock()
	first := len(b.listeners[event]) == 0
	b.listeners[event] = append(b.listeners[event], l)
	if !first {
		b.mu.Unlock()
		return
	}

	channel := b.Channel(event)
	confirmed := make(chan struct{})
	b.pending[channel] = append(b.pending[channel], confirmed)

	ctx := context.Background()
	if b.pubsub == nil {
		b.pubsub = b.client.Subscribe(ctx, channel)
		b.wg.Add(1)
		go b.dispatch(b.pubsub.ChannelWithSubscriptions())
	} else if err := b.pubsub.Subscribe(ctx, channel); err != nil {
		b.logger.Error("failed to subscribe", "event", event, "err", err)
		b.release(channel)
	}
	b.mu.Unlock()

	select {
	case <-confirmed:
	case <-time.After(b.confirm):
		b.logger.Warn("subscription not confirmed", "event", event, "timeout", b.confirm)
	}
}

// ListenerCount returns the number of listeners subscribed to event
func (b *Bus) ListenerCount(event edfsm.EventID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[event])
}

// release wakes every On call waiting for channel. Callers hold mu.
func (b *Bus) release(channel string) {
	for _, c := range b.pending[channel] {
		close(c)
	}
	delete(b.pending, channel)
}

// RemoveListener removes the most recent subscription of l to event. The
// channel is unsubscribed once its last listener is gone.
func (b *Bus) RemoveListener(event edfsm.EventID, l *edfsm.Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ls := b.listeners[event]
	for i := len(ls) - 1; i >= 0; i-- {
		if ls[i] == l {
			ls = append(ls[:i:i], ls[i+1:]...)
			break
		}
	}
	if len(ls) > 0 {
		b.listeners[event] = ls
		return
	}

	delete(b.listeners, event)
	if b.pubsub == nil {
		return
	}
	if err := b.pubsub.Unsubscribe(context.Background(), b.Channel(event)); err != nil {
		b.logger.Error("failed to unsubscribe", "event", event, "err", err)
	}
}

// Close stops delivery and releases the subscription connection
func (b *Bus) Close() error {
	b.mu.Lock()
	ps := b.pubsub
	b.pubsub = nil
	b.listeners = make(map[edfsm.EventID][]*edfsm.Listener)
	for channel := range b.pending {
		b.release(channel)
	}
	b.mu.Unlock()

	var err error
	if ps != nil {
		if cerr := ps.Close(); cerr != nil {
			err = errors.Wrap(cerr, "close pubsub")
		}
	}
	b.wg.Wait()

	if b.ownClient {
		if cerr := b.client.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close client")
		}
	}
	return err
}

func (b *Bus) dispatch(msgs <-chan any) {
	defer b.wg.Done()

	for m := range msgs {
		switch msg := m.(type) {
		case *backend.Subscription:
			if msg.Kind == "subscribe" {
				b.mu.Lock()
				b.release(msg.Channel)
				b.mu.Unlock()
			}
		case *backend.Message:
			b.deliver(msg)
		}
	}
}

func (b *Bus) deliver(msg *backend.Message) {
	if !strings.HasPrefix(msg.Channel, b.prefix) {
		return
	}
	event := edfsm.EventID(strings.TrimPrefix(msg.Channel, b.prefix))

	var payload any
	if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
		b.logger.Warn("dropping undecodable message", "event", event, "err", err)
		return
	}

	b.mu.Lock()
	ls := b.listeners[event]
	b.mu.Unlock()

	for _, l := range ls {
		l.Handle(payload)
	}
}
