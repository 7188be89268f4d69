package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/askerfotball/club-assistant/internal/infrastructure/resilience"
)

// HTTPStatusError is a non-2xx provider response with a bounded body
// excerpt for the logs.
type HTTPStatusError struct {
	Status int
	Body   string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: status %d: %s", e.Status, e.Body)
}

// Classify drives retry and breaker decisions. Client errors other than
// 429 are the caller's fault: retrying cannot help and the provider is
// healthy. Everything else looks like provider trouble.
func Classify(err error) resilience.Class {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Class{}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Status == http.StatusTooManyRequests:
			return resilience.Class{Retryable: true, CountFailure: true}
		case statusErr.Status >= 500:
			return resilience.Class{Retryable: true, CountFailure: true}
		default:
			return resilience.Class{}
		}
	}

	// Transport-level failures: DNS, refused connections, timeouts.
	return resilience.Class{Retryable: true, CountFailure: true}
}
