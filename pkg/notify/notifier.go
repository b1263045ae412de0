package notify

import (
	"context"
	"encoding/json"

	"storyfeed-api/pkg/events"
	"storyfeed-api/pkg/logging"
)

// Notifier sends real-time messages to open connections.
type Notifier interface {
	NotifyAuthor(authorID int, payload []byte)
	NotifyAll(payload []byte)
}

// ActivityPusher forwards ActivityCreated events to every recipient, or to
// every connection for broadcast events.
type ActivityPusher struct {
	notifier Notifier
	logger   logging.Logger
}

func NewActivityPusher(n Notifier, logger logging.Logger) *ActivityPusher {
	return &ActivityPusher{notifier: n, logger: logger}
}

// Handle is an events.Handler.
func (p *ActivityPusher) Handle(_ context.Context, ev events.ActivityCreated) {
	if p == nil || p.notifier == nil || (len(ev.Recipients) == 0 && !ev.Broadcast) {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		p.logger.WithError(err).WithField("activity_id", ev.ActivityID).Error("failed to marshal notification")
		return
	}
	if ev.Broadcast {
		p.notifier.NotifyAll(payload)
		return
	}
	for _, id := range ev.Recipients {
		p.notifier.NotifyAuthor(id, payload)
	}
}
