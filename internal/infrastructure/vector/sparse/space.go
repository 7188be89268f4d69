package sparse

import (
	"context"

	"github.com/askerfotball/club-assistant/internal/core/domain"
)

// Space scores queries against TF-IDF rows. Rows and queries are
// L2-normalized by the vectorizer, so the dot product is the cosine.
type Space struct {
	vectorizer *Vectorizer
	rows       []domain.Vector
}

func NewSpace(vectorizer *Vectorizer, rows []domain.Vector) *Space {
	return &Space{vectorizer: vectorizer, rows: rows}
}

func (s *Space) Mode() domain.IndexMode { return domain.ModeSparse }

func (s *Space) Rows() int { return len(s.rows) }

// Project never fails: a query with no in-vocabulary terms becomes the
// zero vector and scores zero everywhere.
func (s *Space) Project(_ context.Context, query string) (domain.Vector, error) {
	return s.vectorizer.Transform(query), nil
}

func (s *Space) Similarity(query domain.Vector, row int) float64 {
	return query.Dot(s.rows[row])
}
