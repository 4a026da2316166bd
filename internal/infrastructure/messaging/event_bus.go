package messaging

import (
	"sync"
	"time"

	"github.com/AtRiskMedia/postdup-go/internal/domain/events"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/security"
)

// EventBus runs hook handlers synchronously in subscription order. A
// panicking handler is logged and skipped.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]events.Handler
	logger   *logging.ChanneledLogger
}

func NewEventBus(logger *logging.ChanneledLogger) *EventBus {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &EventBus{
		handlers: make(map[string][]events.Handler),
		logger:   logger,
	}
}

// Subscribe registers handler for one hook name.
func (b *EventBus) Subscribe(eventType string, handler events.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

func (b *EventBus) Publish(event events.Event) {
	if event.ID == "" {
		event.ID = security.GenerateULID()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	b.mu.RLock()
	handlers := append([]events.Handler(nil), b.handlers[event.Type]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch(h, event)
	}
}

func (b *EventBus) dispatch(h events.Handler, event events.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.System().Error("Panic recovered in event handler", "error", r, "event", event.Type, "eventId", event.ID)
		}
	}()
	h(event)
}
