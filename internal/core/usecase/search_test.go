package usecase

import (
	"context"
	"testing"

	"github.com/askerfotball/club-assistant/internal/core/domain"
	"github.com/askerfotball/club-assistant/internal/core/ports"
)

type stubSpace struct {
	mode       domain.IndexMode
	scores     []float64
	projectErr error
}

func (s *stubSpace) Mode() domain.IndexMode { return s.mode }
func (s *stubSpace) Rows() int              { return len(s.scores) }

func (s *stubSpace) Project(context.Context, string) (domain.Vector, error) {
	if s.projectErr != nil {
		return domain.Vector{}, s.projectErr
	}
	return domain.Vector{}, nil
}

func (s *stubSpace) Similarity(_ domain.Vector, row int) float64 {
	return s.scores[row]
}

func chunksNamed(ids ...string) []domain.Chunk {
	out := make([]domain.Chunk, len(ids))
	for i, id := range ids {
		out[i] = domain.Chunk{ID: id, Text: id, ChunkIndex: i}
	}
	return out
}

func TestSearchReturnsDescendingScores(t *testing.T) {
	space := &stubSpace{mode: domain.ModeSparse, scores: []float64{0.1, 0.9, 0.5}}
	searcher := NewSearcher([]ports.VectorSpace{space}, chunksNamed("a", "b", "c"))

	hits, err := searcher.Search(context.Background(), "q", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	if hits[0].ID != "b" || hits[1].ID != "c" || hits[2].ID != "a" {
		t.Fatalf("unexpected order: %s, %s, %s", hits[0].ID, hits[1].ID, hits[2].ID)
	}
}

func TestSearchTiesKeepCorpusOrder(t *testing.T) {
	space := &stubSpace{mode: domain.ModeSparse, scores: []float64{0.5, 0.5, 0.5}}
	searcher := NewSearcher([]ports.VectorSpace{space}, chunksNamed("a", "b", "c"))

	hits, err := searcher.Search(context.Background(), "q", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if hits[0].ID != "a" || hits[1].ID != "b" || hits[2].ID != "c" {
		t.Fatalf("ties must keep corpus order, got %s, %s, %s", hits[0].ID, hits[1].ID, hits[2].ID)
	}
}

func TestSearchReturnsFewerHitsOnlyWhenCorpusIsSmaller(t *testing.T) {
	space := &stubSpace{mode: domain.ModeSparse, scores: []float64{0.2, 0.4}}
	searcher := NewSearcher([]ports.VectorSpace{space}, chunksNamed("a", "b"))

	hits, err := searcher.Search(context.Background(), "q", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits for 2-chunk corpus, got %d", len(hits))
	}
}

func TestSearchFallsBackToNextSpaceOnProjectionFailure(t *testing.T) {
	broken := &stubSpace{
		mode:       domain.ModeDense,
		scores:     []float64{0.9, 0.1},
		projectErr: domain.WrapError(domain.ErrCapabilityUnavailable, "embed query", context.DeadlineExceeded),
	}
	fallback := &stubSpace{mode: domain.ModeSparse, scores: []float64{0.1, 0.9}}
	searcher := NewSearcher([]ports.VectorSpace{broken, fallback}, chunksNamed("a", "b"))

	hits, err := searcher.Search(context.Background(), "q", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if hits[0].ID != "b" {
		t.Fatalf("expected fallback space scores, got top hit %s", hits[0].ID)
	}
}

func TestSearchPropagatesErrorWhenAllSpacesFail(t *testing.T) {
	broken := &stubSpace{
		mode:       domain.ModeDense,
		scores:     []float64{0.9},
		projectErr: domain.WrapError(domain.ErrCapabilityUnavailable, "embed query", context.DeadlineExceeded),
	}
	searcher := NewSearcher([]ports.VectorSpace{broken}, chunksNamed("a"))

	_, err := searcher.Search(context.Background(), "q", 1)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrCapabilityUnavailable) {
		t.Fatalf("expected capability error, got %v", err)
	}
}

func TestSearchEmptyCorpusReturnsNoHits(t *testing.T) {
	space := &stubSpace{mode: domain.ModeSparse}
	searcher := NewSearcher([]ports.VectorSpace{space}, nil)

	hits, err := searcher.Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits for empty corpus, got %d", len(hits))
	}
}
