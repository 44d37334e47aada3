package nop

import (
	"context"

	"github.com/tenglaafi/tenglaafi/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishQuery validates input and otherwise does nothing.
func (p *Publisher) PublishQuery(_ context.Context, event *eventstream.QueryAnsweredEvent) error {
	if event == nil {
		return eventstream.ErrNilQueryEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
