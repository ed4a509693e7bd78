package llm

import (
	"context"
	"sync"
)

// MockClient is a scriptable Client for tests.
type MockClient struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     []Request
	model     string
}

func NewMockClient(responses ...string) *MockClient {
	return &MockClient{responses: responses, model: "mock-model"}
}

// SetError makes every subsequent Complete call fail with err.
func (m *MockClient) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockClient) Model() string { return m.model }

func (m *MockClient) Complete(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.calls = append(m.calls, req)
	if m.err != nil {
		return nil, m.err
	}
	content := ""
	if len(m.responses) > 0 {
		content = m.responses[0]
		if len(m.responses) > 1 {
			m.responses = m.responses[1:]
		}
	}
	return &Response{Content: content}, nil
}

// Calls returns a copy of every request seen so far.
func (m *MockClient) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}
