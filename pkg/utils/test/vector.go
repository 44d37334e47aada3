package testutils

import (
	"context"
	"fmt"
	"sort"

	"github.com/tenglaafi/tenglaafi/pkg/vector"
)

// MockIndex is an in-memory vector index with brute-force cosine search.
type MockIndex struct {
	Entries map[string]vector.Entry
	Meta    map[string]string

	// UpsertCalls counts Upsert invocations across batches.
	UpsertCalls int

	// FailUpsert forces Upsert to error.
	FailUpsert bool

	// FailSearch forces Search to error.
	FailSearch bool
}

func NewMockIndex() *MockIndex {
	return &MockIndex{
		Entries: make(map[string]vector.Entry),
		Meta:    make(map[string]string),
	}
}

func (m *MockIndex) Upsert(_ context.Context, entries []vector.Entry) error {
	m.UpsertCalls++
	if m.FailUpsert {
		return fmt.Errorf("mock upsert failure")
	}
	for _, e := range entries {
		m.Entries[e.ID] = e
	}
	return nil
}

func (m *MockIndex) Search(_ context.Context, embedding []float32, k int) ([]vector.Match, error) {
	if m.FailSearch {
		return nil, fmt.Errorf("mock search failure")
	}

	matches := make([]vector.Match, 0, len(m.Entries))
	for _, e := range m.Entries {
		matches = append(matches, vector.Match{
			Entry:    e,
			Distance: 1 - dot(embedding, e.Embedding),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (m *MockIndex) Get(_ context.Context, id string) (*vector.Entry, error) {
	e, ok := m.Entries[id]
	if !ok {
		return nil, vector.ErrNotFound
	}
	return &e, nil
}

func (m *MockIndex) Count(_ context.Context) (int, error) {
	return len(m.Entries), nil
}

func (m *MockIndex) Metadata(_ context.Context) (map[string]string, error) {
	out := make(map[string]string, len(m.Meta))
	for k, v := range m.Meta {
		out[k] = v
	}
	return out, nil
}

func (m *MockIndex) SetMetadata(_ context.Context, meta map[string]string) error {
	m.Meta = make(map[string]string, len(meta))
	for k, v := range meta {
		m.Meta[k] = v
	}
	return nil
}

func (m *MockIndex) Health(_ context.Context) bool { return true }

func (m *MockIndex) Reset(_ context.Context) error {
	m.Entries = make(map[string]vector.Entry)
	m.Meta = make(map[string]string)
	return nil
}

func (m *MockIndex) Close() error { return nil }

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
