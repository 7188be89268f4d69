package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/askerfotball/club-assistant/internal/core/domain"
	"github.com/askerfotball/club-assistant/internal/core/ports"
)

const (
	generatorContextHits = 5
	historyTurns         = 3
	extractMaxChars      = 280
	overfetchFloor       = 6
)

// AnswerUseCase runs the full query path: expand, retrieve, re-rank,
// compose. Generation is optional; when it is absent or fails the answer
// is extracted from the top hit, and when nothing is confident the
// sentinel is returned together with the raw hits for transparency.
type AnswerUseCase struct {
	provider  ports.IndexProvider
	expander  *Expander
	generator ports.AnswerGenerator
	params    RerankParams
	defaultK  int
}

// NewAnswerUseCase wires the query path. generator may be nil when no
// generation capability is configured.
func NewAnswerUseCase(
	provider ports.IndexProvider,
	expander *Expander,
	generator ports.AnswerGenerator,
	params RerankParams,
	defaultK int,
) *AnswerUseCase {
	if defaultK <= 0 {
		defaultK = 4
	}
	return &AnswerUseCase{
		provider:  provider,
		expander:  expander,
		generator: generator,
		params:    params,
		defaultK:  defaultK,
	}
}

func (uc *AnswerUseCase) Answer(ctx context.Context, question string, k int, history []domain.Turn) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", fmt.Errorf("empty question"))
	}
	if k <= 0 {
		k = uc.defaultK
	}

	expansion := uc.expander.Expand(question)

	spaces, chunks, err := uc.provider.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire index: %w", err)
	}
	searcher := NewSearcher(spaces, chunks)

	// Over-fetch so the re-ranker has material to filter.
	fetch := 2 * k
	if fetch < overfetchFloor {
		fetch = overfetchFloor
	}
	rawHits, err := searcher.Search(ctx, expansion.Query, fetch)
	if err != nil {
		return nil, err
	}

	hits := Rerank(rawHits, expansion.Preferred, expansion.Terms, k, uc.params)
	if len(hits) == 0 {
		if len(rawHits) > k {
			rawHits = rawHits[:k]
		}
		return &domain.Answer{Text: domain.DontKnowAnswer, Sources: rawHits}, nil
	}

	text := uc.compose(ctx, question, hits, history)
	if wordCount(text) < 2 {
		text = domain.DontKnowAnswer
	}
	return &domain.Answer{Text: text, Sources: hits}, nil
}

func (uc *AnswerUseCase) compose(ctx context.Context, question string, hits []domain.SearchHit, history []domain.Turn) string {
	if uc.generator == nil {
		return extractive(hits)
	}

	context := hits
	if len(context) > generatorContextHits {
		context = context[:generatorContextHits]
	}
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}

	text, err := uc.generator.GenerateAnswer(ctx, question, context, history)
	if err != nil {
		// Single attempt; a failed capability degrades to extraction.
		return extractive(hits)
	}
	return strings.TrimSpace(text)
}

func extractive(hits []domain.SearchHit) string {
	if len(hits) == 0 {
		return domain.DontKnowAnswer
	}
	sentence := firstSentence(hits[0].Text)
	if sentence == "" {
		return domain.DontKnowAnswer
	}
	return sentence
}

var sentenceExpr = regexp.MustCompile(`(.+?[.!?])\s`)

// firstSentence returns the first complete sentence of txt, capped at
// extractMaxChars runes.
func firstSentence(txt string) string {
	txt = strings.Join(strings.Fields(txt), " ")
	out := txt
	if m := sentenceExpr.FindStringSubmatch(txt + " "); m != nil {
		out = m[1]
	}
	runes := []rune(out)
	if len(runes) > extractMaxChars {
		out = string(runes[:extractMaxChars])
	}
	return out
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
