package sparse

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/askerfotball/club-assistant/internal/core/domain"
)

const DefaultMaxFeatures = 60000

// Vectorizer is a TF-IDF projection over unigrams and bigrams with
// sublinear term-frequency scaling and L2-normalized rows. The fitted
// state (vocabulary + IDF weights) must be persisted with the index:
// queries are only comparable when projected by the same state.
type Vectorizer struct {
	maxFeatures int
	terms       []string
	index       map[string]int
	idf         []float64
}

type vectorizerState struct {
	Terms       []string  `json:"terms"`
	IDF         []float64 `json:"idf"`
	MaxFeatures int       `json:"max_features"`
}

func NewVectorizer(maxFeatures int) *Vectorizer {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	return &Vectorizer{maxFeatures: maxFeatures}
}

// Fit builds the vocabulary and IDF weights over the corpus. When the
// corpus has more distinct terms than maxFeatures, the most frequent
// terms are kept, with alphabetical tie-breaks so fits are reproducible.
func (v *Vectorizer) Fit(texts []string) error {
	df := make(map[string]int)
	for _, text := range texts {
		seen := make(map[string]struct{})
		for _, term := range analyze(text) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	if len(terms) > v.maxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if df[terms[i]] != df[terms[j]] {
				return df[terms[i]] > df[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.maxFeatures]
	}
	sort.Strings(terms)

	n := len(texts)
	idf := make([]float64, len(terms))
	index := make(map[string]int, len(terms))
	for i, term := range terms {
		index[term] = i
		idf[i] = math.Log(float64(1+n)/float64(1+df[term])) + 1
	}

	v.terms = terms
	v.index = index
	v.idf = idf
	return nil
}

// Transform projects text into the fitted space. Terms outside the
// vocabulary are dropped; the resulting row is L2-normalized.
func (v *Vectorizer) Transform(text string) domain.Vector {
	counts := make(map[int]int)
	for _, term := range analyze(text) {
		if i, ok := v.index[term]; ok {
			counts[i]++
		}
	}
	if len(counts) == 0 {
		return domain.Vector{}
	}

	indices := make([]int, 0, len(counts))
	for i := range counts {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	vector := domain.Vector{
		Indices: make([]uint32, len(indices)),
		Values:  make([]float32, len(indices)),
	}
	for pos, i := range indices {
		tf := 1 + math.Log(float64(counts[i]))
		vector.Indices[pos] = uint32(i)
		vector.Values[pos] = float32(tf * v.idf[i])
	}
	vector.Normalize()
	return vector
}

func (v *Vectorizer) State() ([]byte, error) {
	state := vectorizerState{
		Terms:       v.terms,
		IDF:         v.idf,
		MaxFeatures: v.maxFeatures,
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("marshal vectorizer state: %w", err)
	}
	return raw, nil
}

// FromState restores a fitted vectorizer from its persisted state.
func FromState(raw []byte) (*Vectorizer, error) {
	var state vectorizerState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, domain.WrapError(domain.ErrIndexCorrupt, "restore vectorizer", err)
	}
	if len(state.Terms) != len(state.IDF) {
		return nil, domain.WrapError(domain.ErrIndexCorrupt, "restore vectorizer",
			fmt.Errorf("terms/idf mismatch: %d/%d", len(state.Terms), len(state.IDF)))
	}
	v := NewVectorizer(state.MaxFeatures)
	v.terms = state.Terms
	v.idf = state.IDF
	v.index = make(map[string]int, len(state.Terms))
	for i, term := range state.Terms {
		v.index[term] = i
	}
	return v, nil
}

// Dimensions reports the fitted vocabulary size.
func (v *Vectorizer) Dimensions() int { return len(v.terms) }

// analyze lowercases, tokenizes on non-alphanumerics, drops one-rune
// tokens and emits unigrams followed by bigrams.
func analyze(text string) []string {
	tokens := tokenize(text)
	out := make([]string, 0, 2*len(tokens))
	out = append(out, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+" "+tokens[i+1])
	}
	return out
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := fields[:0]
	for _, field := range fields {
		if len([]rune(field)) >= 2 {
			tokens = append(tokens, field)
		}
	}
	return tokens
}
