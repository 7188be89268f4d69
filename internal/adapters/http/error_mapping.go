package httpadapter

import (
	"net/http"

	"github.com/askerfotball/club-assistant/internal/core/domain"
)

func statusForError(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrIndexMissing),
		domain.IsKind(err, domain.ErrTemporary),
		domain.IsKind(err, domain.ErrCapabilityUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// messageForError keeps wire messages stable and free of internal
// detail; the full error goes to the logs.
func messageForError(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid request"
	case domain.IsKind(err, domain.ErrNotFound):
		return "not found"
	case domain.IsKind(err, domain.ErrIndexMissing):
		return "index not built"
	case domain.IsKind(err, domain.ErrIndexCorrupt):
		return "index unreadable"
	case domain.IsKind(err, domain.ErrTemporary),
		domain.IsKind(err, domain.ErrCapabilityUnavailable):
		return "temporarily unavailable"
	default:
		return "internal error"
	}
}
