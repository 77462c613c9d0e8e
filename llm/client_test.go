package llm

import (
	"context"
	"testing"
)

// mockAdapter is a test double for ProviderAdapter.
type mockAdapter struct {
	name     string
	response *Response
	errs     []error // consumed one per call; nil entry means success
	calls    int
}

func (m *mockAdapter) Name() string { return m.name }

func (m *mockAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	m.calls++
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return m.response, nil
}

func newMockAdapter(name, text string) *mockAdapter {
	return &mockAdapter{
		name: name,
		response: &Response{
			ID:       "test_resp",
			Model:    "test-model",
			Provider: name,
			Message: Message{
				Role: RoleAssistant,
				Text: text,
			},
			FinishReason: FinishReason{Reason: "stop"},
			Usage:        Usage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30},
		},
	}
}

func TestClientComplete(t *testing.T) {
	mock := newMockAdapter("test-provider", "Hello!")
	client := NewClient(
		WithProvider("test-provider", mock),
		WithDefaultProvider("test-provider"),
	)

	resp, err := client.Complete(context.Background(), Request{
		Model:    "test-model",
		Messages: []Message{UserMessage("Hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "Hello!" {
		t.Errorf("expected text %q, got %q", "Hello!", resp.Text())
	}
	if resp.Provider != "test-provider" {
		t.Errorf("expected provider %q, got %q", "test-provider", resp.Provider)
	}
}

func TestClientProviderRouting(t *testing.T) {
	openai := newMockAdapter("openai", "OpenAI response")
	anthropic := newMockAdapter("anthropic", "Anthropic response")
	client := NewClient(
		WithProvider("openai", openai),
		WithProvider("anthropic", anthropic),
		WithDefaultProvider("openai"),
	)

	resp, err := client.Complete(context.Background(), Request{
		Model:    "test-model",
		Provider: "anthropic",
		Messages: []Message{UserMessage("Hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "Anthropic response" {
		t.Errorf("expected anthropic response, got %q", resp.Text())
	}
	if anthropic.calls != 1 || openai.calls != 0 {
		t.Errorf("expected only the anthropic adapter to be called (anthropic=%d, openai=%d)", anthropic.calls, openai.calls)
	}
}

func TestClientNoProvider(t *testing.T) {
	client := NewClient()
	_, err := client.Complete(context.Background(), Request{
		Model:    "test-model",
		Messages: []Message{UserMessage("Hi")},
	})
	if err == nil {
		t.Fatal("expected an error with no providers registered")
	}
	if _, ok := err.(*ConfigurationError); !ok {
		t.Errorf("expected ConfigurationError, got %T", err)
	}
}

func TestClientUnknownProvider(t *testing.T) {
	client := NewClient(WithProvider("openai", newMockAdapter("openai", "hi")))
	_, err := client.Complete(context.Background(), Request{
		Model:    "test-model",
		Provider: "gemini",
		Messages: []Message{UserMessage("Hi")},
	})
	if _, ok := err.(*ConfigurationError); !ok {
		t.Errorf("expected ConfigurationError for unregistered provider, got %v", err)
	}
}

func TestClientRetriesTransientErrors(t *testing.T) {
	mock := newMockAdapter("test-provider", "recovered")
	mock.errs = []error{
		&ServerError{ProviderError: ProviderError{ServiceError: ServiceError{Message: "boom"}, Retryable: true, StatusCode: 500}},
		nil,
	}
	client := NewClient(
		WithProvider("test-provider", mock),
		WithRetryPolicy(RetryPolicy{MaxRetries: 2, BaseDelay: 0.001, MaxDelay: 0.01, BackoffMultiplier: 1}),
	)

	resp, err := client.Complete(context.Background(), Request{
		Model:    "test-model",
		Messages: []Message{UserMessage("Hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "recovered" {
		t.Errorf("expected recovered response, got %q", resp.Text())
	}
	if mock.calls != 2 {
		t.Errorf("expected 2 calls (1 failure + 1 retry), got %d", mock.calls)
	}
}

func TestClientDoesNotRetryAuthErrors(t *testing.T) {
	mock := newMockAdapter("test-provider", "never")
	mock.errs = []error{
		&AuthenticationError{ProviderError: ProviderError{ServiceError: ServiceError{Message: "bad key"}, StatusCode: 401}},
	}
	client := NewClient(
		WithProvider("test-provider", mock),
		WithRetryPolicy(RetryPolicy{MaxRetries: 3, BaseDelay: 0.001, MaxDelay: 0.01, BackoffMultiplier: 1}),
	)

	_, err := client.Complete(context.Background(), Request{
		Model:    "test-model",
		Messages: []Message{UserMessage("Hi")},
	})
	if err == nil {
		t.Fatal("expected authentication error to surface")
	}
	if mock.calls != 1 {
		t.Errorf("expected exactly 1 call for non-retryable error, got %d", mock.calls)
	}
}

func TestClientDefaultsToSoleProvider(t *testing.T) {
	client := NewClient(WithProvider("only", newMockAdapter("only", "sole")))
	resp, err := client.Complete(context.Background(), Request{
		Model:    "test-model",
		Messages: []Message{UserMessage("Hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "sole" {
		t.Errorf("expected sole provider response, got %q", resp.Text())
	}
}
