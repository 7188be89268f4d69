package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/askerfotball/club-assistant/internal/core/domain"
	"github.com/askerfotball/club-assistant/internal/core/ports"
)

// Searcher scores a query against every indexed chunk. Spaces are ordered
// attempts: when a projection fails (dense provider down), the next space
// is tried before the error reaches the caller.
type Searcher struct {
	spaces []ports.VectorSpace
	chunks []domain.Chunk
}

func NewSearcher(spaces []ports.VectorSpace, chunks []domain.Chunk) *Searcher {
	return &Searcher{spaces: spaces, chunks: chunks}
}

// Search returns up to n hits in descending raw-score order. Ties keep
// corpus order. Fewer than n hits means the corpus itself is smaller.
func (s *Searcher) Search(ctx context.Context, query string, n int) ([]domain.SearchHit, error) {
	if n <= 0 || len(s.chunks) == 0 {
		return nil, nil
	}

	var projectErr error
	for _, space := range s.spaces {
		queryVector, err := space.Project(ctx, query)
		if err != nil {
			projectErr = err
			continue
		}
		return s.rank(space, queryVector, n), nil
	}
	if projectErr != nil {
		return nil, fmt.Errorf("project query: %w", projectErr)
	}
	return nil, nil
}

func (s *Searcher) rank(space ports.VectorSpace, queryVector domain.Vector, n int) []domain.SearchHit {
	scores := make([]float64, len(s.chunks))
	for i := range s.chunks {
		scores[i] = space.Similarity(queryVector, i)
	}

	order := make([]int, len(s.chunks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})

	if n > len(order) {
		n = len(order)
	}
	hits := make([]domain.SearchHit, 0, n)
	for _, idx := range order[:n] {
		hits = append(hits, domain.SearchHit{Chunk: s.chunks[idx], Score: scores[idx]})
	}
	return hits
}
