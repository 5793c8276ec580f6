package llm

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/PabloGalante/chatflow/internal/domain"
)

// MockClient is a scripted domain.Generator for local mode and tests.
// Responses are keyed by GenerateRequest.Name; unscripted structured calls
// return an empty JSON object, which every call site treats as "nothing found".
type MockClient struct {
	mu        sync.Mutex
	responses map[string]string
	errors    map[string]error
	calls     []domain.GenerateRequest
}

func NewMockClient() *MockClient {
	return &MockClient{
		responses: make(map[string]string),
		errors:    make(map[string]error),
	}
}

// On scripts the JSON output returned for requests named name.
func (m *MockClient) On(name, output string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[name] = output
	delete(m.errors, name)
	return m
}

// Fail makes requests named name return err.
func (m *MockClient) Fail(name string, err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[name] = err
	return m
}

// Calls returns the requests received so far.
func (m *MockClient) Calls() []domain.GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.GenerateRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

// Generate implements domain.Generator.
func (m *MockClient) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	out, scripted := m.responses[req.Name]
	err := m.errors[req.Name]
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !scripted {
		if req.Schema == nil {
			return &domain.GenerateResponse{Text: "ok"}, nil
		}
		out = "{}"
	}

	resp := &domain.GenerateResponse{Text: out}
	if req.Schema != nil && json.Valid([]byte(out)) {
		resp.Output = json.RawMessage(out)
	}
	return resp, nil
}
