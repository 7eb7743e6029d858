// Package events carries external stimuli (location fixes, wake-ups, theme
// flips) to the scheduler controller over a typed in-process bus.
package events

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"

	ferrors "git.home.luguber.info/inful/goldenhour/internal/foundation/errors"
)

// Bus is a typed, in-process publish/subscribe bus.
//
// Subscriptions are keyed by the event's Go type. Publish blocks until every
// matching subscriber accepted the event, unsubscribed, or ctx is done, so
// subscribers see events in publish order. Close closes every subscription
// channel; a publish racing an unsubscribe drops the event for that
// subscriber instead of sending on a closed channel.
type Bus struct {
	mu     sync.RWMutex
	subs   map[reflect.Type]map[uint64]*subscriber
	nextID atomic.Uint64
	closed atomic.Bool
	once   sync.Once
}

// subscriber guards its channel so that closing it never races a send.
// Closing done first wakes a blocked deliver, which releases the read lock
// before close takes the write lock and closes ch.
type subscriber struct {
	mu       sync.RWMutex
	done     chan struct{}
	doneOnce sync.Once
	closed   bool
	send     func(ctx context.Context, evt any, done <-chan struct{}) error
	closeCh  func()
}

func (s *subscriber) deliver(ctx context.Context, evt any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	return s.send(ctx, evt, s.done)
}

func (s *subscriber) close() {
	s.doneOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		s.closed = true
		s.closeCh()
		s.mu.Unlock()
	})
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[reflect.Type]map[uint64]*subscriber)}
}

// Subscribe registers for events of exactly type T and returns the receive
// channel plus an idempotent unsubscribe function.
func Subscribe[T any](b *Bus, buffer int) (<-chan T, func()) {
	key := reflect.TypeFor[T]()
	ch := make(chan T, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed.Load() {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID.Add(1)
	if b.subs[key] == nil {
		b.subs[key] = make(map[uint64]*subscriber)
	}
	sub := &subscriber{
		done: make(chan struct{}),
		send: func(ctx context.Context, evt any, done <-chan struct{}) error {
			select {
			case ch <- evt.(T):
				return nil
			case <-done:
				return nil
			case <-ctx.Done():
				return ferrors.WrapError(ctx.Err(), ferrors.CategoryRuntime, "event publish canceled").
					WithContext("event_type", key.String()).
					Build()
			}
		},
		closeCh: func() { close(ch) },
	}
	b.subs[key][id] = sub

	var unsubOnce sync.Once
	return ch, func() {
		unsubOnce.Do(func() {
			b.mu.Lock()
			if typed, ok := b.subs[key]; ok {
				delete(typed, id)
				if len(typed) == 0 {
					delete(b.subs, key)
				}
			}
			b.mu.Unlock()
			sub.close()
		})
	}
}

// SubscriberCount returns the number of active subscribers for T.
func SubscriberCount[T any](b *Bus) int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[reflect.TypeFor[T]()])
}

// Publish delivers evt to every subscriber of its concrete type.
func (b *Bus) Publish(ctx context.Context, evt any) error {
	if evt == nil {
		return ferrors.ValidationError("event cannot be nil").Build()
	}
	if ctx == nil {
		return ferrors.ValidationError("context cannot be nil").Build()
	}
	if b.closed.Load() {
		return ferrors.DaemonError("event bus is closed").Build()
	}

	b.mu.RLock()
	typed := b.subs[reflect.TypeOf(evt)]
	targets := make([]*subscriber, 0, len(typed))
	for _, s := range typed {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	for _, s := range targets {
		if err := s.deliver(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the bus and every subscription channel.
func (b *Bus) Close() {
	b.once.Do(func() {
		b.mu.Lock()
		b.closed.Store(true)
		var all []*subscriber
		for _, typed := range b.subs {
			for _, s := range typed {
				all = append(all, s)
			}
		}
		b.subs = make(map[reflect.Type]map[uint64]*subscriber)
		b.mu.Unlock()

		for _, s := range all {
			s.close()
		}
	})
}
