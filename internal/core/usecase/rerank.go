package usecase

import (
	"sort"
	"strings"

	"github.com/askerfotball/club-assistant/internal/core/domain"
)

// RerankParams holds the heuristic constants. The reference values come
// from observed deployments and are configuration, not invariants.
type RerankParams struct {
	CategoryBonus float64
	TermBonus     float64
	TermBonusCap  float64
	MinScore      float64
}

func DefaultRerankParams() RerankParams {
	return RerankParams{
		CategoryBonus: 0.15,
		TermBonus:     0.02,
		TermBonusCap:  0.10,
		MinScore:      0.15,
	}
}

// Rerank blends raw similarity with category-preference and
// keyword-presence bonuses, drops hits below MinScore (boundary
// inclusive) and returns the best k. An empty result is a valid state
// meaning "no confident hits".
func Rerank(hits []domain.SearchHit, preferred map[domain.DocType]struct{}, terms []string, k int, params RerankParams) []domain.SearchHit {
	if len(hits) == 0 || k <= 0 {
		return nil
	}

	adjusted := make([]domain.SearchHit, len(hits))
	copy(adjusted, hits)
	for i := range adjusted {
		adjusted[i].Score = adjustScore(adjusted[i], preferred, terms, params)
	}

	sort.SliceStable(adjusted, func(i, j int) bool {
		return adjusted[i].Score > adjusted[j].Score
	})

	good := adjusted[:0:len(adjusted)]
	for _, hit := range adjusted {
		if hit.Score >= params.MinScore {
			good = append(good, hit)
		}
	}
	if len(good) > k {
		good = good[:k]
	}
	if len(good) == 0 {
		return nil
	}
	return good
}

// adjustScore never lowers a raw score: both bonuses are non-negative.
func adjustScore(hit domain.SearchHit, preferred map[domain.DocType]struct{}, terms []string, params RerankParams) float64 {
	score := hit.Score
	if _, ok := preferred[hit.DocType]; ok {
		score += params.CategoryBonus
	}
	if len(terms) > 0 {
		text := strings.ToLower(hit.Text)
		matched := 0
		for _, term := range terms {
			if strings.Contains(text, term) {
				matched++
			}
		}
		bonus := params.TermBonus * float64(matched)
		if bonus > params.TermBonusCap {
			bonus = params.TermBonusCap
		}
		score += bonus
	}
	return score
}
