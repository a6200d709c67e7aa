package notify

import (
	"context"

	"github.com/dmitrijs2005/gatekeeper/internal/logging"
)

// LogPublisher writes messages to the log instead of delivering them.
// Used when no queue is configured. Code values are logged too, so it is
// meant for development only.
type LogPublisher struct {
	log logging.Logger
}

func NewLogPublisher(log logging.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, msg Message) error {
	p.log.Info(ctx, "notification", "kind", msg.Kind, "to", msg.To, "name", msg.Name, "data", msg.Data)
	return nil
}
