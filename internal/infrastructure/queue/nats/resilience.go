package nats

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/askerfotball/club-assistant/internal/core/domain"
	"github.com/askerfotball/club-assistant/internal/infrastructure/resilience"
)

func classify(err error) resilience.Class {
	switch {
	case err == nil:
		return resilience.Class{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.Class{}
	case resilience.Open(err):
		return resilience.Class{Retryable: true, CountFailure: true}
	case errors.Is(err, nats.ErrNoServers),
		errors.Is(err, nats.ErrTimeout),
		errors.Is(err, nats.ErrConnectionClosed),
		errors.Is(err, nats.ErrDisconnected):
		return resilience.Class{Retryable: true, CountFailure: true}
	default:
		return resilience.Class{CountFailure: true}
	}
}

// markTemporary tags broker outages so the HTTP layer can answer 503
// instead of 500.
func markTemporary(err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classify(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, "reindex request", err)
	}
	return err
}
