// Package events fans lifecycle transitions out to connected clients.
package events

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/lexdesk/backend/internal/service/lifecycle"
)

const defaultBuffer = 16

// Broker implements lifecycle.Observer. Slow subscribers lose events rather
// than blocking the controller.
type Broker struct {
	log    zerolog.Logger
	buffer int

	mu   sync.RWMutex
	subs map[string]*subscription
}

type subscription struct {
	feature string
	ch      chan lifecycle.Event
}

// NewBroker creates a broker. buffer <= 0 uses the default channel size.
func NewBroker(buffer int, logger zerolog.Logger) *Broker {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Broker{
		log:    logger.With().Str("component", "events").Logger(),
		buffer: buffer,
		subs:   make(map[string]*subscription),
	}
}

// Subscribe registers a listener for feature, or every feature when empty.
// The returned func unsubscribes and closes the channel.
func (b *Broker) Subscribe(feature string) (<-chan lifecycle.Event, func()) {
	id := uuid.NewString()
	sub := &subscription{feature: feature, ch: make(chan lifecycle.Event, b.buffer)}

	b.mu.Lock()
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.ch)
		})
	}
}

// Publish delivers e to every matching subscriber without blocking.
func (b *Broker) Publish(e lifecycle.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, sub := range b.subs {
		if sub.feature != "" && sub.feature != e.Feature {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			b.log.Debug().Str("subscriber", id).Str("feature", e.Feature).Msg("subscriber lagging, event dropped")
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
