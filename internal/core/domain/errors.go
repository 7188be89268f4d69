package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks an unusable configuration (for example
	// generation enabled without a credential). Fatal at startup.
	ErrConfiguration = errors.New("configuration error")
	// ErrIndexMissing marks absent index artifacts. Recoverable by a
	// rebuild; surfaced to callers as "index not built".
	ErrIndexMissing = errors.New("index not built")
	// ErrIndexCorrupt marks unreadable or inconsistent index artifacts
	// (row-count mismatch, incompatible vectorizer). Fatal for that
	// index; never patched over.
	ErrIndexCorrupt = errors.New("index corrupt")
	// ErrCapabilityUnavailable marks a failed or unconfigured external
	// capability (embedding, generation). Always degraded locally.
	ErrCapabilityUnavailable = errors.New("capability unavailable")
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("not found")
	ErrTemporary             = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
