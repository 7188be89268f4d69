package ports

import (
	"context"

	"github.com/askerfotball/club-assistant/internal/core/domain"
)

// QuestionAnswerer is the inbound contract consumed by the UI boundary.
type QuestionAnswerer interface {
	Answer(ctx context.Context, question string, k int, history []domain.Turn) (*domain.Answer, error)
}

// IndexBuilder is the inbound contract for full index rebuilds.
type IndexBuilder interface {
	Rebuild(ctx context.Context, buildID string) (*domain.IndexBuild, error)
}
