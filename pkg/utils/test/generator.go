package testutils

import (
	"context"
	"fmt"

	"github.com/tenglaafi/tenglaafi/pkg/llm"
)

// MockGenerator is a test generator that replays a scripted sequence of
// responses, then falls back to Answer.
type MockGenerator struct {
	// Answer is returned once the script is exhausted.
	Answer string

	// Script is consumed one response per Generate call.
	Script []ScriptedResponse

	// Calls counts Generate invocations.
	Calls int

	// LastSystemPrompt and LastUserPrompt record the most recent call.
	LastSystemPrompt string
	LastUserPrompt   string

	ModelName string
}

// ScriptedResponse is one scripted Generate outcome.
type ScriptedResponse struct {
	Answer string
	Err    error
}

func NewMockGenerator(answer string) *MockGenerator {
	return &MockGenerator{
		Answer:    answer,
		ModelName: "mock-generator",
	}
}

func (m *MockGenerator) Generate(_ context.Context, systemPrompt, userPrompt string, _ llm.GenerateOptions) (string, error) {
	m.Calls++
	m.LastSystemPrompt = systemPrompt
	m.LastUserPrompt = userPrompt

	if len(m.Script) > 0 {
		r := m.Script[0]
		m.Script = m.Script[1:]
		return r.Answer, r.Err
	}

	if m.Answer == "" {
		return "", fmt.Errorf("mock generator has no answer configured")
	}
	return m.Answer, nil
}

func (m *MockGenerator) Model() string { return m.ModelName }

func (m *MockGenerator) Close() error { return nil }
