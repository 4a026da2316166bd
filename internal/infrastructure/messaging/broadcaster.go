package messaging

import (
	"sync"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/logging"
)

// LogBroadcaster manages live operation log viewers.
type LogBroadcaster struct {
	clients map[chan *content.LogEntry]struct{}
	mu      sync.Mutex
	logger  *logging.ChanneledLogger
}

func NewLogBroadcaster(logger *logging.ChanneledLogger) *LogBroadcaster {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &LogBroadcaster{
		clients: make(map[chan *content.LogEntry]struct{}),
		logger:  logger,
	}
}

// AddClient registers a viewer. The channel is buffered; slow viewers miss
// entries rather than block writers.
func (b *LogBroadcaster) AddClient() chan *content.LogEntry {
	ch := make(chan *content.LogEntry, 16)

	b.mu.Lock()
	b.clients[ch] = struct{}{}
	count := len(b.clients)
	b.mu.Unlock()

	b.logger.HTTP().Debug("Log stream client registered", "clients", count)
	return ch
}

// RemoveClient unregisters and closes ch.
func (b *LogBroadcaster) RemoveClient(ch chan *content.LogEntry) {
	b.mu.Lock()
	if _, ok := b.clients[ch]; ok {
		delete(b.clients, ch)
		close(ch)
	}
	count := len(b.clients)
	b.mu.Unlock()

	b.logger.HTTP().Debug("Log stream client unregistered", "clients", count)
}

func (b *LogBroadcaster) Broadcast(entry *content.LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.clients {
		select {
		case ch <- entry:
		default:
			b.logger.HTTP().Warn("Log stream client lagging, entry dropped", "entryId", entry.ID)
		}
	}
}

func (b *LogBroadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}
