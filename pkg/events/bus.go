package events

import (
	"context"
	"sync"

	"storyfeed-api/pkg/logging"
)

// Bus fans events out to in-process subscribers.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	logger   logging.Logger
}

func NewBus(logger logging.Logger) *Bus {
	return &Bus{logger: logger}
}

func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	b.handlers = append(b.handlers, h)
	b.mu.Unlock()
}

// Publish delivers ev to every subscriber. A panicking subscriber is logged
// and does not stop delivery to the others.
func (b *Bus) Publish(ctx context.Context, ev ActivityCreated) error {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(ctx, h, ev)
	}
	return nil
}

func (b *Bus) deliver(ctx context.Context, h Handler, ev ActivityCreated) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.WithField("panic", r).WithField("activity_id", ev.ActivityID).Error("event subscriber panicked")
		}
	}()
	h(ctx, ev)
}
