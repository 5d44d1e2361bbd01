package service

import (
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// Import progress event types.
const (
	EventImportStarted   = "import.started"
	EventImportStage     = "import.stage"
	EventItemSkipped     = "import.item_skipped"
	EventImportCompleted = "import.completed"
	EventImportFailed    = "import.failed"
)

// EventPublisher delivers import progress to subscribers of an account.
type EventPublisher interface {
	BroadcastEvent(eventType, username string, data json.RawMessage)
}

// publish marshals data and hands it to p. A nil publisher is a no-op.
func publish(p EventPublisher, log *logrus.Logger, eventType, username string, data any) {
	if p == nil {
		return
	}

	raw, err := json.Marshal(data)
	if err != nil {
		log.WithError(err).WithField("event", eventType).Warn("failed to marshal import event")
		return
	}

	p.BroadcastEvent(eventType, username, raw)
}
