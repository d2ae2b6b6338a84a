package service

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edustack/portal-api/internal/models"
)

// EventBroker fans drive change events out to per-owner subscribers.
// Delivery is best-effort: a subscriber that cannot keep up has events
// dropped rather than blocking the mutation path.
type EventBroker struct {
	mu      sync.RWMutex
	subs    map[string]map[chan models.ChangeEvent]struct{}
	bufSize int
	logger  *zap.Logger
}

// NewEventBroker constructs the broker.
func NewEventBroker(logger *zap.Logger) *EventBroker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBroker{
		subs:    make(map[string]map[chan models.ChangeEvent]struct{}),
		bufSize: 16,
		logger:  logger,
	}
}

// Subscribe registers a listener for one owner's events. The returned cancel
// function must be called to release the channel.
func (b *EventBroker) Subscribe(ownerID string) (<-chan models.ChangeEvent, func()) {
	ch := make(chan models.ChangeEvent, b.bufSize)

	b.mu.Lock()
	if b.subs[ownerID] == nil {
		b.subs[ownerID] = make(map[chan models.ChangeEvent]struct{})
	}
	b.subs[ownerID][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[ownerID]; ok {
			if _, subscribed := set[ch]; subscribed {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(b.subs, ownerID)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of its owner.
func (b *EventBroker) Publish(event models.ChangeEvent) {
	if b == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[event.OwnerID] {
		select {
		case ch <- event:
		default:
			b.logger.Debug("dropping change event for slow subscriber",
				zap.String("owner_id", event.OwnerID),
				zap.String("action", string(event.Action)))
		}
	}
}
