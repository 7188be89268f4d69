package usecase

import (
	"context"
	"fmt"
	"hash/fnv"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/askerfotball/club-assistant/internal/core/domain"
	"github.com/askerfotball/club-assistant/internal/core/ports"
)

const embedBatchSize = 64

// BuildUseCase runs one full offline index build: load corpus, chunk,
// classify, vectorize, publish atomically, record provenance. The index
// is immutable between builds; there is no incremental path.
type BuildUseCase struct {
	loader     ports.CorpusLoader
	chunker    ports.Chunker
	classifier ports.TypeClassifier
	vectorizer ports.Vectorizer
	embedder   ports.Embedder
	store      ports.IndexStore
	registry   ports.BuildRegistry
	mode       domain.IndexMode
}

// NewBuildUseCase wires the build pipeline. embedder is nil in sparse
// deployments; the vectorizer is always fitted so dense indexes carry a
// lexical fallback projection.
func NewBuildUseCase(
	loader ports.CorpusLoader,
	chunker ports.Chunker,
	classifier ports.TypeClassifier,
	vectorizer ports.Vectorizer,
	embedder ports.Embedder,
	store ports.IndexStore,
	registry ports.BuildRegistry,
	mode domain.IndexMode,
) *BuildUseCase {
	return &BuildUseCase{
		loader:     loader,
		chunker:    chunker,
		classifier: classifier,
		vectorizer: vectorizer,
		embedder:   embedder,
		store:      store,
		registry:   registry,
		mode:       mode,
	}
}

func (uc *BuildUseCase) Rebuild(ctx context.Context, buildID string) (*domain.IndexBuild, error) {
	if buildID == "" {
		buildID = uuid.NewString()
	}
	build := &domain.IndexBuild{
		ID:        buildID,
		Mode:      uc.mode,
		Status:    domain.BuildStatusBuilding,
		StartedAt: time.Now().UTC(),
	}
	if err := uc.registry.RecordBuild(ctx, build); err != nil {
		return nil, fmt.Errorf("record build: %w", err)
	}

	snapshot, sources, err := uc.assemble(ctx, buildID)
	if err != nil {
		if finishErr := uc.registry.FinishBuild(ctx, buildID, domain.BuildStatusFailed, err.Error(), 0, 0); finishErr != nil {
			return nil, fmt.Errorf("%w; mark build failed: %v", err, finishErr)
		}
		build.Status = domain.BuildStatusFailed
		build.Error = err.Error()
		return build, err
	}

	if err := uc.store.Publish(ctx, snapshot); err != nil {
		err = fmt.Errorf("publish index: %w", err)
		if finishErr := uc.registry.FinishBuild(ctx, buildID, domain.BuildStatusFailed, err.Error(), 0, 0); finishErr != nil {
			return nil, fmt.Errorf("%w; mark build failed: %v", err, finishErr)
		}
		build.Status = domain.BuildStatusFailed
		build.Error = err.Error()
		return build, err
	}

	for _, source := range sources {
		if err := uc.registry.RecordSource(ctx, source); err != nil {
			return nil, fmt.Errorf("record source %s: %w", source.Source, err)
		}
	}
	if err := uc.registry.FinishBuild(ctx, buildID, domain.BuildStatusReady, "", len(sources), len(snapshot.Chunks)); err != nil {
		return nil, fmt.Errorf("mark build ready: %w", err)
	}

	build.Status = domain.BuildStatusReady
	build.DocumentCount = len(sources)
	build.ChunkCount = len(snapshot.Chunks)
	return build, nil
}

func (uc *BuildUseCase) assemble(ctx context.Context, buildID string) (*domain.IndexSnapshot, []*domain.SourceRecord, error) {
	docs, err := uc.loader.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load corpus: %w", err)
	}

	chunks := make([]domain.Chunk, 0, len(docs)*4)
	sources := make([]*domain.SourceRecord, 0, len(docs))
	for _, doc := range docs {
		docChunks := uc.chunkDocument(doc)
		chunks = append(chunks, docChunks...)

		docType := domain.DocTypeUnknown
		if len(docChunks) > 0 {
			docType = docChunks[0].DocType
		}
		sources = append(sources, &domain.SourceRecord{
			ID:         uuid.NewString(),
			BuildID:    buildID,
			Source:     doc.Source,
			Title:      doc.Title,
			DocType:    docType,
			Format:     doc.Format,
			ChunkCount: len(docChunks),
			CreatedAt:  time.Now().UTC(),
		})
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	// Fitted in every mode: dense builds keep it as the lexical fallback.
	if err := uc.vectorizer.Fit(texts); err != nil {
		return nil, nil, fmt.Errorf("fit vectorizer: %w", err)
	}
	state, err := uc.vectorizer.State()
	if err != nil {
		return nil, nil, fmt.Errorf("serialize vectorizer: %w", err)
	}

	lexical := make([]domain.Vector, len(texts))
	for i, text := range texts {
		lexical[i] = uc.vectorizer.Transform(text)
	}

	snapshot := &domain.IndexSnapshot{
		Manifest: domain.IndexManifest{
			BuildID:        buildID,
			Mode:           uc.mode,
			Rows:           len(chunks),
			VectorizerHash: hashState(state),
			BuiltAt:        time.Now().UTC(),
		},
		Chunks:          chunks,
		VectorizerState: state,
	}

	switch uc.mode {
	case domain.ModeSparse:
		snapshot.Vectors = lexical
	case domain.ModeDense:
		dense, err := uc.embedChunks(ctx, texts)
		if err != nil {
			// Provider failures are fatal to the build: no partial index.
			return nil, nil, err
		}
		snapshot.Vectors = dense
		snapshot.LexicalVectors = lexical
		snapshot.Manifest.EmbedModel = uc.embedder.Model()
	default:
		return nil, nil, domain.WrapError(domain.ErrConfiguration, "assemble index", fmt.Errorf("unknown index mode %q", uc.mode))
	}

	if len(snapshot.Vectors) != len(snapshot.Chunks) {
		return nil, nil, domain.WrapError(domain.ErrIndexCorrupt, "assemble index",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(snapshot.Vectors), len(snapshot.Chunks)))
	}
	return snapshot, sources, nil
}

func (uc *BuildUseCase) chunkDocument(doc domain.SourceDocument) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, 4)
	index := 0
	for _, unit := range doc.Units {
		source := doc.Source
		if unit.Source != "" {
			source = unit.Source
		}
		title := doc.Title
		if unit.Title != "" {
			title = unit.Title
		}
		docType := unit.DocType
		if docType == "" {
			docType = uc.classifier.Classify(filepath.Base(doc.Source), unit.Text)
		}

		pieces := []string{unit.Text}
		if !unit.PreChunked {
			pieces = uc.chunker.Split(unit.Text)
		}
		for _, piece := range pieces {
			if piece == "" {
				continue
			}
			chunks = append(chunks, domain.Chunk{
				ID:          fmt.Sprintf("%s#%d", source, index),
				Text:        piece,
				Source:      source,
				Title:       title,
				DocType:     docType,
				ChunkIndex:  index,
				VersionDate: unit.VersionDate,
				Page:        unit.Page,
			})
			index++
		}
	}
	return chunks
}

func (uc *BuildUseCase) embedChunks(ctx context.Context, texts []string) ([]domain.Vector, error) {
	if uc.embedder == nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "embed chunks", fmt.Errorf("dense mode without embedder"))
	}
	vectors := make([]domain.Vector, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := uc.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed chunks [%d:%d]: %w", start, end, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embed chunks [%d:%d]: got %d vectors", start, end, len(batch))
		}
		for _, values := range batch {
			vector := domain.FromDense(values)
			vector.Normalize()
			vectors = append(vectors, vector)
		}
	}
	return vectors, nil
}

func hashState(state []byte) string {
	h := fnv.New64a()
	_, _ = h.Write(state)
	return fmt.Sprintf("%016x", h.Sum64())
}
