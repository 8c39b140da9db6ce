package realtime

import (
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event names pushed to viewers. Both are cache-invalidation signals:
// consumers re-fetch authoritative state from the read API, no event
// carries poll data.
const (
	EventPollListUpdated = "pollListUpdated"
	EventPollUpdated     = "pollUpdated"
)

// Publisher sends an event to the cross-instance channel.
type Publisher interface {
	Publish(event string, payload []byte) error
}

// Notifier emits poll events. With a Publisher attached, events go
// through Redis and come back via the subscription for a single local
// broadcast per instance; without one (single-instance deployment, or a
// publish failure) it broadcasts locally.
type Notifier struct {
	hub    *Hub
	pub    Publisher
	logger *zap.Logger
}

// NewNotifier creates a Notifier. pub may be nil.
func NewNotifier(hub *Hub, pub Publisher, logger *zap.Logger) *Notifier {
	return &Notifier{hub: hub, pub: pub, logger: logger}
}

// PollListUpdated tells all viewers to re-fetch the poll collection.
func (n *Notifier) PollListUpdated() {
	n.emit(EventPollListUpdated, nil)
}

// PollUpdated tells viewers displaying pollID to re-fetch its detail.
func (n *Notifier) PollUpdated(pollID uuid.UUID) {
	payload, _ := json.Marshal(map[string]string{"pollId": pollID.String()})
	n.emit(EventPollUpdated, payload)
}

func (n *Notifier) emit(event string, payload []byte) {
	if n.pub != nil {
		err := n.pub.Publish(event, payload)
		if err == nil {
			return
		}
		n.logger.Warn("publish event", zap.String("event", event), zap.Error(err))
	}
	n.hub.Broadcast(event, payload)
}
