package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/askerfotball/club-assistant/internal/core/domain"
	"github.com/askerfotball/club-assistant/internal/core/ports"
	"github.com/askerfotball/club-assistant/internal/infrastructure/vector/dense"
	"github.com/askerfotball/club-assistant/internal/infrastructure/vector/sparse"
)

// Manager serves the current published index to the query path. It
// re-reads the manifest on every Acquire and reloads when the build id
// changes, so a rebuild becomes visible without a process restart.
type Manager struct {
	store    ports.IndexStore
	embedder ports.Embedder
	log      *slog.Logger

	mu      sync.RWMutex
	buildID string
	spaces  []ports.VectorSpace
	chunks  []domain.Chunk
}

// NewManager builds an index provider. embedder is nil in sparse
// deployments.
func NewManager(store ports.IndexStore, embedder ports.Embedder, log *slog.Logger) *Manager {
	return &Manager{store: store, embedder: embedder, log: log}
}

func (m *Manager) Acquire(ctx context.Context) ([]ports.VectorSpace, []domain.Chunk, error) {
	manifest, err := m.store.Manifest(ctx)
	if err != nil {
		return nil, nil, err
	}

	m.mu.RLock()
	if m.buildID == manifest.BuildID {
		spaces, chunks := m.spaces, m.chunks
		m.mu.RUnlock()
		return spaces, chunks, nil
	}
	m.mu.RUnlock()

	return m.reload(ctx, manifest.BuildID)
}

// Invalidate drops the cached snapshot. The next Acquire reloads from
// disk even if the manifest build id is unchanged.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.buildID = ""
	m.spaces = nil
	m.chunks = nil
	m.mu.Unlock()
}

func (m *Manager) reload(ctx context.Context, buildID string) ([]ports.VectorSpace, []domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Another goroutine may have reloaded while we waited for the lock.
	if m.buildID == buildID {
		return m.spaces, m.chunks, nil
	}

	snapshot, err := m.store.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	spaces, err := assembleSpaces(snapshot, m.embedder)
	if err != nil {
		return nil, nil, err
	}

	m.buildID = snapshot.Manifest.BuildID
	m.spaces = spaces
	m.chunks = snapshot.Chunks
	m.log.Info("index loaded",
		"build_id", snapshot.Manifest.BuildID,
		"mode", string(snapshot.Manifest.Mode),
		"rows", snapshot.Manifest.Rows,
	)
	return m.spaces, m.chunks, nil
}

// assembleSpaces orders the projection attempts: in dense mode the
// provider-backed space comes first with the persisted TF-IDF rows as
// the lexical fallback, in sparse mode TF-IDF is the only space.
func assembleSpaces(snapshot *domain.IndexSnapshot, embedder ports.Embedder) ([]ports.VectorSpace, error) {
	vectorizer, err := sparse.FromState(snapshot.VectorizerState)
	if err != nil {
		return nil, err
	}

	switch snapshot.Manifest.Mode {
	case domain.ModeSparse:
		return []ports.VectorSpace{sparse.NewSpace(vectorizer, snapshot.Vectors)}, nil
	case domain.ModeDense:
		// Queries must be embedded with the exact model that produced
		// the rows; a different provider configuration cannot serve
		// this index.
		if embedder == nil {
			return nil, domain.WrapError(domain.ErrIndexCorrupt, "assemble spaces",
				fmt.Errorf("dense index %s requires an embedding provider", snapshot.Manifest.BuildID))
		}
		if model := embedder.Model(); model != snapshot.Manifest.EmbedModel {
			return nil, domain.WrapError(domain.ErrIndexCorrupt, "assemble spaces",
				fmt.Errorf("index embedded with %q, configured model is %q", snapshot.Manifest.EmbedModel, model))
		}
		spaces := []ports.VectorSpace{dense.NewSpace(embedder, snapshot.Vectors)}
		if len(snapshot.LexicalVectors) == len(snapshot.Chunks) && len(snapshot.LexicalVectors) > 0 {
			spaces = append(spaces, sparse.NewSpace(vectorizer, snapshot.LexicalVectors))
		}
		return spaces, nil
	default:
		return nil, domain.WrapError(domain.ErrIndexCorrupt, "assemble spaces",
			fmt.Errorf("unknown mode %q", snapshot.Manifest.Mode))
	}
}
