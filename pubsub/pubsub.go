package pubsub

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var plog zerolog.Logger

func init() {
	plog = log.With().Str("component", "pubsub").Logger()
}

type SubscriptionID int64

// Pubsub fans messages out to buffered subscriber channels. A subscriber
// that falls behind by more than the buffer loses messages.
type Pubsub[T any] struct {
	nextID      SubscriptionID
	buffer      int
	subscribers map[SubscriptionID]chan T
	dropped     map[SubscriptionID]int64
	mu          sync.RWMutex
}

func New[T any](buffer int) *Pubsub[T] {
	return &Pubsub[T]{
		buffer:      buffer,
		subscribers: make(map[SubscriptionID]chan T),
		dropped:     make(map[SubscriptionID]int64),
	}
}

func (ps *Pubsub[T]) Subscribe() (SubscriptionID, <-chan T) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ch := make(chan T, ps.buffer)
	id := ps.nextID
	ps.subscribers[id] = ch
	ps.nextID += 1

	return id, ch
}

func (ps *Pubsub[T]) Unsubscribe(id SubscriptionID) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ch, ok := ps.subscribers[id]
	if !ok {
		return
	}

	delete(ps.subscribers, id)
	delete(ps.dropped, id)
	close(ch)
}

// Publish never blocks.
func (ps *Pubsub[T]) Publish(msg T) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	for id, ch := range ps.subscribers {
		select {
		case ch <- msg:
		default:
			ps.dropped[id]++
			plog.Warn().
				Int64("subscription_id", int64(id)).
				Int64("dropped", ps.dropped[id]).
				Msg("Message dropped, channel full")
		}
	}
}

func (ps *Pubsub[T]) Subscribers() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	return len(ps.subscribers)
}
