package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:        maxRetries,
		BaseDelay:         0.001,
		MaxDelay:          0.01,
		BackoffMultiplier: 1,
	}
}

func TestRetrySucceedsAfterTransientFailure(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), fastPolicy(2), func(ctx context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", &ServerError{ProviderError: ProviderError{ServiceError: ServiceError{Message: "transient"}, Retryable: true}}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" || calls != 2 {
		t.Errorf("expected success on second call, got result=%q calls=%d", result, calls)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(3), func(ctx context.Context) (string, error) {
		calls++
		return "", &AuthenticationError{ProviderError: ProviderError{ServiceError: ServiceError{Message: "denied"}}}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("non-retryable error must not be retried, got %d calls", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	transient := &ServerError{ProviderError: ProviderError{ServiceError: ServiceError{Message: "down"}, Retryable: true}}
	_, err := Retry(context.Background(), fastPolicy(2), func(ctx context.Context) (string, error) {
		calls++
		return "", transient
	})
	if !errors.Is(err, transient) && err != transient {
		t.Errorf("expected last error to surface, got %v", err)
	}
	if calls != 3 { // 1 initial + 2 retries
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	policy := fastPolicy(1)
	policy.BaseDelay = 1.0 // long enough that cancellation wins

	_, err := Retry(ctx, policy, func(ctx context.Context) (string, error) {
		return "", &ServerError{ProviderError: ProviderError{ServiceError: ServiceError{Message: "down"}, Retryable: true}}
	})
	if _, ok := err.(*AbortError); !ok {
		t.Errorf("expected AbortError on cancelled context, got %T", err)
	}
}

func TestRetryAfterOverridesBackoff(t *testing.T) {
	retryAfter := 0.005
	calls := 0
	start := time.Now()
	_, err := Retry(context.Background(), fastPolicy(1), func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", &RateLimitError{ProviderError: ProviderError{
				ServiceError: ServiceError{Message: "slow down"},
				Retryable:    true,
				RetryAfter:   &retryAfter,
			}}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("retry-after delay not honored, took %v", elapsed)
	}
}

func TestRetryAfterBeyondMaxDelayFailsFast(t *testing.T) {
	retryAfter := 120.0
	policy := fastPolicy(3)
	calls := 0
	_, err := Retry(context.Background(), policy, func(ctx context.Context) (string, error) {
		calls++
		return "", &RateLimitError{ProviderError: ProviderError{
			ServiceError: ServiceError{Message: "slow down"},
			Retryable:    true,
			RetryAfter:   &retryAfter,
		}}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("retry-after beyond max delay should fail immediately, got %d calls", calls)
	}
}

func TestDelayGrowsExponentially(t *testing.T) {
	p := RetryPolicy{BaseDelay: 1, MaxDelay: 8, BackoffMultiplier: 2}
	if d := p.Delay(0); d != time.Second {
		t.Errorf("attempt 0: expected 1s, got %v", d)
	}
	if d := p.Delay(2); d != 4*time.Second {
		t.Errorf("attempt 2: expected 4s, got %v", d)
	}
	if d := p.Delay(10); d != 8*time.Second {
		t.Errorf("attempt 10: expected cap at 8s, got %v", d)
	}
}
