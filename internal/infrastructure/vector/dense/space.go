package dense

import (
	"context"

	"github.com/askerfotball/club-assistant/internal/core/domain"
	"github.com/askerfotball/club-assistant/internal/core/ports"
)

// Space scores queries against provider embeddings. Rows are normalized
// at build time; queries are normalized here, so the dot product is the
// cosine. Projection goes through the external provider and can fail,
// which the searcher treats as a signal to try the next space.
type Space struct {
	embedder ports.Embedder
	rows     []domain.Vector
}

func NewSpace(embedder ports.Embedder, rows []domain.Vector) *Space {
	return &Space{embedder: embedder, rows: rows}
}

func (s *Space) Mode() domain.IndexMode { return domain.ModeDense }

func (s *Space) Rows() int { return len(s.rows) }

func (s *Space) Project(ctx context.Context, query string) (domain.Vector, error) {
	values, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return domain.Vector{}, domain.WrapError(domain.ErrCapabilityUnavailable, "embed query", err)
	}
	vector := domain.FromDense(values)
	vector.Normalize()
	return vector, nil
}

func (s *Space) Similarity(query domain.Vector, row int) float64 {
	return query.Dot(s.rows[row])
}
