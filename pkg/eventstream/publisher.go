package eventstream

import "context"

// Publisher publishes query events to an event stream backend.
type Publisher interface {
	PublishQuery(ctx context.Context, event *QueryAnsweredEvent) error
	Close() error
}
