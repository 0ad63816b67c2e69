package llm

import (
	"context"
	"sync"
)

// MockClient is a scripted Client for tests.
type MockClient struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	handler   func(CompletionRequest) (string, error)
	calls     []CompletionRequest
}

// NewMockClient returns a client that always answers with response.
func NewMockClient(response string) *MockClient {
	return &MockClient{responses: []string{response}}
}

// WithResponses replaces the scripted responses. Calls cycle through them.
func (m *MockClient) WithResponses(responses ...string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = responses
	return m
}

// WithError makes every call fail with err.
func (m *MockClient) WithError(err error) *MockClient {
	return m.WithHandler(func(CompletionRequest) (string, error) { return "", err })
}

// WithErrors scripts per-call errors; a nil entry lets that call succeed.
// Calls past the end of the list succeed.
func (m *MockClient) WithErrors(errs ...error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = errs
	return m
}

// WithHandler answers calls with fn, taking precedence over responses.
func (m *MockClient) WithHandler(fn func(CompletionRequest) (string, error)) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = fn
	return m
}

// Complete implements Client.
func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	n := len(m.calls)
	m.calls = append(m.calls, req)
	handler := m.handler
	var scriptedErr error
	if n < len(m.errs) {
		scriptedErr = m.errs[n]
	}
	var content string
	if len(m.responses) > 0 {
		content = m.responses[n%len(m.responses)]
	}
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if scriptedErr != nil {
		return nil, scriptedErr
	}
	if handler != nil {
		var err error
		content, err = handler(req)
		if err != nil {
			return nil, err
		}
	}

	return &CompletionResponse{
		Content:      content,
		Model:        "mock",
		FinishReason: "stop",
	}, nil
}

// Calls returns a copy of the requests received so far.
func (m *MockClient) Calls() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompletionRequest(nil), m.calls...)
}

// CallCount returns the number of calls received.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastCall returns the most recent request, or the zero value.
func (m *MockClient) LastCall() CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return CompletionRequest{}
	}
	return m.calls[len(m.calls)-1]
}
