package llm

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// Client routes requests to registered provider adapters and applies the
// retry policy around each call.
type Client struct {
	providers       map[string]ProviderAdapter
	defaultProvider string
	retry           RetryPolicy
	mu              sync.RWMutex
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithProvider registers a provider adapter.
func WithProvider(name string, adapter ProviderAdapter) ClientOption {
	return func(c *Client) {
		c.providers[name] = adapter
	}
}

// WithDefaultProvider sets the default provider name.
func WithDefaultProvider(name string) ClientOption {
	return func(c *Client) {
		c.defaultProvider = name
	}
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(policy RetryPolicy) ClientOption {
	return func(c *Client) {
		c.retry = policy
	}
}

// NewClient creates a new Client with the given options.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		providers: make(map[string]ProviderAdapter),
		retry:     DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	// If no default and exactly one provider, use it.
	if c.defaultProvider == "" && len(c.providers) == 1 {
		for name := range c.providers {
			c.defaultProvider = name
		}
	}
	return c
}

// RegisterProvider adds a provider adapter to the client.
func (c *Client) RegisterProvider(name string, adapter ProviderAdapter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[name] = adapter
	if c.defaultProvider == "" {
		c.defaultProvider = name
	}
}

// Providers returns the names of all registered providers.
func (c *Client) Providers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.providers))
	for name := range c.providers {
		names = append(names, name)
	}
	return names
}

// resolveProvider determines which provider adapter to use for a request.
func (c *Client) resolveProvider(req Request) (ProviderAdapter, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	name := req.Provider
	if name == "" {
		name = c.defaultProvider
	}
	if name == "" {
		return nil, &ConfigurationError{ServiceError: ServiceError{
			Message: "no provider specified and no default provider configured",
		}}
	}

	adapter, ok := c.providers[name]
	if !ok {
		return nil, &ConfigurationError{ServiceError: ServiceError{
			Message: fmt.Sprintf("provider %q is not registered", name),
		}}
	}
	return adapter, nil
}

// Complete sends a blocking request to the resolved provider, retrying
// transient failures per the client's retry policy.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	adapter, err := c.resolveProvider(req)
	if err != nil {
		return nil, err
	}

	if req.Provider == "" {
		req.Provider = adapter.Name()
	}

	return Retry(ctx, c.retry, func(ctx context.Context) (*Response, error) {
		return adapter.Complete(ctx, req)
	})
}

// Close releases resources held by all registered providers.
func (c *Client) Close() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var firstErr error
	for _, adapter := range c.providers {
		if closer, ok := adapter.(Closer); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// providerEnvKeys maps provider names to the environment variable that holds
// their API key.
var providerEnvKeys = map[string]string{
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
}

// NewClientFromEnv creates a Client by scanning environment variables for API
// keys and creating a GollmAdapter for each detected provider. Returns a
// ConfigurationError if no provider key is present.
func NewClientFromEnv() (*Client, error) {
	c := NewClient()

	for _, provider := range []string{"anthropic", "openai"} {
		if os.Getenv(providerEnvKeys[provider]) == "" {
			continue
		}
		adapter, err := NewGollmAdapter(provider, "")
		if err != nil {
			continue
		}
		c.RegisterProvider(provider, adapter)
	}

	if len(c.providers) == 0 {
		return nil, &ConfigurationError{ServiceError: ServiceError{
			Message: "no LLM provider configured: set ANTHROPIC_API_KEY or OPENAI_API_KEY",
		}}
	}
	return c, nil
}
