package testutils

import (
	"context"

	"github.com/tenglaafi/tenglaafi/pkg/eventstream"
)

// MockPublisher records published events in memory.
type MockPublisher struct {
	Events []*eventstream.QueryAnsweredEvent
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishQuery(_ context.Context, event *eventstream.QueryAnsweredEvent) error {
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockPublisher) Close() error { return nil }
