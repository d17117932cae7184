package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// MockProvider is a testing implementation of Provider.
type MockProvider struct {
	Response     string
	Err          error
	CompleteFunc func(ctx context.Context, req Request) (*Response, error)
}

func (m *MockProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &Response{
		Content: m.Response,
		Usage: Usage{
			PromptTokens:     10,
			CompletionTokens: 10,
			TotalTokens:      20,
		},
	}, nil
}

// FailingMockProvider always fails.
type FailingMockProvider struct {
	Err error
}

func (f *FailingMockProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	if f.Err == nil {
		return nil, fmt.Errorf("mock error")
	}
	return nil, f.Err
}

// ScriptedProvider returns a pre-defined sequence of responses.
// Useful for testing a full reasoning cycle stage by stage.
type ScriptedProvider struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	// CallCount tracks how many times Complete has been called.
	CallCount int
	// Requests records every request seen, in order.
	Requests []Request
}

// NewScriptedProvider creates a ScriptedProvider from the given responses.
func NewScriptedProvider(responses ...string) *ScriptedProvider {
	return &ScriptedProvider{Responses: responses}
}

// Complete pops the next scripted response or returns the configured error.
func (s *ScriptedProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.CallCount++
	s.Requests = append(s.Requests, req)

	if s.Err != nil {
		return nil, s.Err
	}

	if len(s.Responses) == 0 {
		return nil, errors.New("scripted provider: no more responses available")
	}

	content := s.Responses[0]
	s.Responses = s.Responses[1:]

	return &Response{
		Content: content,
		Usage: Usage{
			PromptTokens:     10,
			CompletionTokens: 10,
			TotalTokens:      20,
		},
	}, nil
}

// AddResponse appends a response to the queue.
func (s *ScriptedProvider) AddResponse(response string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Responses = append(s.Responses, response)
}
