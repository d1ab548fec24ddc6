package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// MockResponse is one canned reply.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// MockJSON marshals v into a canned reply. It panics on unmarshalable input.
func MockJSON(v any) MockResponse {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return MockResponse{Content: raw}
}

// MockProvider replays canned responses in order and records requests.
// An exhausted queue yields ErrProviderUnavailable.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	Calls     []Request
}

func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)
	if len(m.responses) == 0 {
		return nil, &ErrProviderUnavailable{}
	}
	next := m.responses[0]
	m.responses = m.responses[1:]
	if next.Err != nil {
		return nil, next.Err
	}
	return &Response{Content: next.Content, Usage: next.Usage, Model: "mock", StopReason: StopEnd}, nil
}

func (m *MockProvider) ModelID() string { return "mock" }

// AddResponse queues another reply.
func (m *MockProvider) AddResponse(r MockResponse) {
	m.mu.Lock()
	m.responses = append(m.responses, r)
	m.mu.Unlock()
}

// CallCount is the number of Generate calls so far.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
