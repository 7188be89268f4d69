package ports

import (
	"context"

	"github.com/askerfotball/club-assistant/internal/core/domain"
)

// Chunker splits cleaned document text into overlapping windows.
type Chunker interface {
	Split(text string) []string
}

// TypeClassifier infers a coarse topical category for a document.
type TypeClassifier interface {
	Classify(filename, text string) domain.DocType
}

// CorpusLoader walks the knowledge-base directories and returns the
// documents to index, in deterministic order.
type CorpusLoader interface {
	Load(ctx context.Context) ([]domain.SourceDocument, error)
}

// Vectorizer is the fitted lexical projection. The same fitted state
// must embed both corpus rows and queries.
type Vectorizer interface {
	Fit(texts []string) error
	Transform(text string) domain.Vector
	State() ([]byte, error)
}

// Embedder builds dense vectors via an external provider. Model identity
// must match between build time and query time.
type Embedder interface {
	Model() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorSpace projects queries and scores them against indexed rows.
type VectorSpace interface {
	Mode() domain.IndexMode
	Rows() int
	Project(ctx context.Context, query string) (domain.Vector, error)
	Similarity(query domain.Vector, row int) float64
}

// IndexProvider hands out the currently published index. Implementations
// reload when a rebuild publishes a new manifest. The returned spaces are
// ordered attempts: the first that projects successfully is used.
type IndexProvider interface {
	Acquire(ctx context.Context) ([]VectorSpace, []domain.Chunk, error)
}

// IndexStore persists and loads the index artifacts as one atomic unit.
type IndexStore interface {
	Publish(ctx context.Context, snapshot *domain.IndexSnapshot) error
	Load(ctx context.Context) (*domain.IndexSnapshot, error)
	Manifest(ctx context.Context) (*domain.IndexManifest, error)
}

// AnswerGenerator creates the final user-facing answer text from the
// retrieved passages. Any error triggers the extractive fallback.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, hits []domain.SearchHit, history []domain.Turn) (string, error)
}

// MessageQueue carries rebuild requests between the API and the indexer.
type MessageQueue interface {
	PublishReindexRequested(ctx context.Context, buildID string) error
	SubscribeReindexRequested(ctx context.Context, handler func(context.Context, string) error) error
	Close()
}

// BuildRegistry records build provenance and per-source bookkeeping.
type BuildRegistry interface {
	EnsureSchema(ctx context.Context) error
	RecordBuild(ctx context.Context, build *domain.IndexBuild) error
	FinishBuild(ctx context.Context, buildID string, status domain.BuildStatus, errMessage string, documentCount, chunkCount int) error
	RecordSource(ctx context.Context, source *domain.SourceRecord) error
	LatestBuild(ctx context.Context) (*domain.IndexBuild, error)
}
