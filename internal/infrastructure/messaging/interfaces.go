// Package messaging provides in-process event delivery and live log fan-out.
package messaging

import "github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"

// Broadcaster fans operation log entries out to connected viewers.
type Broadcaster interface {
	AddClient() chan *content.LogEntry
	RemoveClient(ch chan *content.LogEntry)
	Broadcast(entry *content.LogEntry)
	ClientCount() int
}
