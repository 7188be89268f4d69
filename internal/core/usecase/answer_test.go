package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/askerfotball/club-assistant/internal/core/domain"
	"github.com/askerfotball/club-assistant/internal/core/ports"
)

type stubProvider struct {
	spaces []ports.VectorSpace
	chunks []domain.Chunk
	err    error
}

func (p *stubProvider) Acquire(context.Context) ([]ports.VectorSpace, []domain.Chunk, error) {
	return p.spaces, p.chunks, p.err
}

type stubGenerator struct {
	text    string
	err     error
	calls   int
	gotHits int
	gotHist int
}

func (g *stubGenerator) GenerateAnswer(_ context.Context, _ string, hits []domain.SearchHit, history []domain.Turn) (string, error) {
	g.calls++
	g.gotHits = len(hits)
	g.gotHist = len(history)
	return g.text, g.err
}

func ticketingProvider() *stubProvider {
	chunks := []domain.Chunk{
		{ID: "kb/tickets.md#0", Text: "A season pass costs 1500. Children enter for free.", DocType: domain.DocTypeTicketing, Source: "kb/tickets.md"},
		{ID: "kb/history.md#0", Text: "The club was founded in 1889.", DocType: domain.DocTypeHistory, Source: "kb/history.md"},
	}
	space := &stubSpace{mode: domain.ModeSparse, scores: []float64{0.40, 0.10}}
	return &stubProvider{spaces: []ports.VectorSpace{space}, chunks: chunks}
}

func newAnswerUC(provider ports.IndexProvider, generator ports.AnswerGenerator) *AnswerUseCase {
	return NewAnswerUseCase(provider, newTestExpander(), generator, DefaultRerankParams(), 4)
}

func TestAnswerExtractsFirstSentenceOfTopHit(t *testing.T) {
	uc := newAnswerUC(ticketingProvider(), nil)

	answer, err := uc.Answer(context.Background(), "what does a season ticket cost", 2, nil)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != "A season pass costs 1500." {
		t.Fatalf("expected extractive first sentence, got %q", answer.Text)
	}
	if len(answer.Sources) == 0 || answer.Sources[0].ID != "kb/tickets.md#0" {
		t.Fatalf("expected ticketing chunk as top source, got %+v", answer.Sources)
	}
}

func TestAnswerReturnsSentinelWithRawHitsWhenNothingConfident(t *testing.T) {
	chunks := []domain.Chunk{
		{ID: "a", Text: "irrelevant", DocType: domain.DocTypeUnknown},
		{ID: "b", Text: "also irrelevant", DocType: domain.DocTypeUnknown},
	}
	space := &stubSpace{mode: domain.ModeSparse, scores: []float64{0.05, 0.01}}
	uc := newAnswerUC(&stubProvider{spaces: []ports.VectorSpace{space}, chunks: chunks}, nil)

	answer, err := uc.Answer(context.Background(), "hvem er kaptein", 2, nil)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != domain.DontKnowAnswer {
		t.Fatalf("expected sentinel, got %q", answer.Text)
	}
	if len(answer.Sources) != 2 {
		t.Fatalf("sentinel must carry raw hits for transparency, got %d", len(answer.Sources))
	}
	if answer.Sources[0].ID != "a" {
		t.Fatalf("expected raw hit order, got %s", answer.Sources[0].ID)
	}
}

func TestAnswerGeneratorFailureFallsBackToExtraction(t *testing.T) {
	generator := &stubGenerator{err: errors.New("upstream 503")}
	uc := newAnswerUC(ticketingProvider(), generator)

	answer, err := uc.Answer(context.Background(), "season ticket price", 2, nil)
	if err != nil {
		t.Fatalf("Answer() must never fail on generator errors, got %v", err)
	}
	if generator.calls != 1 {
		t.Fatalf("expected a single generation attempt, got %d", generator.calls)
	}
	if answer.Text != "A season pass costs 1500." {
		t.Fatalf("expected extractive fallback, got %q", answer.Text)
	}
}

func TestAnswerUsesGeneratorWithBoundedContextAndHistory(t *testing.T) {
	generator := &stubGenerator{text: "A season pass costs 1500 kroner."}
	uc := newAnswerUC(ticketingProvider(), generator)

	history := []domain.Turn{
		{Question: "q1", Answer: "a1"},
		{Question: "q2", Answer: "a2"},
		{Question: "q3", Answer: "a3"},
		{Question: "q4", Answer: "a4"},
	}
	answer, err := uc.Answer(context.Background(), "season ticket price", 2, history)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != "A season pass costs 1500 kroner." {
		t.Fatalf("expected generated text, got %q", answer.Text)
	}
	if generator.gotHist != 3 {
		t.Fatalf("expected last 3 history turns, got %d", generator.gotHist)
	}
	if generator.gotHits == 0 || generator.gotHits > 5 {
		t.Fatalf("expected at most 5 context hits, got %d", generator.gotHits)
	}
}

func TestAnswerDegenerateGenerationIsReplacedWithSentinel(t *testing.T) {
	generator := &stubGenerator{text: "ok"}
	uc := newAnswerUC(ticketingProvider(), generator)

	answer, err := uc.Answer(context.Background(), "season ticket price", 2, nil)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != domain.DontKnowAnswer {
		t.Fatalf("one-word output must become the sentinel, got %q", answer.Text)
	}
}

func TestAnswerRejectsEmptyQuestion(t *testing.T) {
	uc := newAnswerUC(ticketingProvider(), nil)

	_, err := uc.Answer(context.Background(), "   ", 2, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestAnswerPropagatesMissingIndex(t *testing.T) {
	provider := &stubProvider{err: domain.WrapError(domain.ErrIndexMissing, "load index", errors.New("no manifest"))}
	uc := newAnswerUC(provider, nil)

	_, err := uc.Answer(context.Background(), "season ticket price", 2, nil)
	if !domain.IsKind(err, domain.ErrIndexMissing) {
		t.Fatalf("expected index-missing error, got %v", err)
	}
}

func TestFirstSentenceTruncatesLongText(t *testing.T) {
	long := ""
	for i := 0; i < 40; i++ {
		long += "long clause without punctuation "
	}
	out := firstSentence(long)
	if len([]rune(out)) > 280 {
		t.Fatalf("expected truncation to 280 runes, got %d", len([]rune(out)))
	}
}
