package index

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/askerfotball/club-assistant/internal/core/domain"
)

const (
	manifestFile       = "manifest.json"
	metaFile           = "meta.jsonl"
	vectorsFile        = "vectors.jsonl"
	lexicalVectorsFile = "lexical_vectors.jsonl"
	vectorizerFile     = "vectorizer.json"
)

// FSStore persists the index artifacts under <dataDir>/index. A publish
// writes a staging directory and renames it into place, so readers only
// ever see a complete artifact set. Manifest, metadata, vectors and
// vectorizer state are one unit; loading validates they agree.
type FSStore struct {
	dataDir string
}

func NewFSStore(dataDir string) *FSStore {
	return &FSStore{dataDir: dataDir}
}

func (s *FSStore) indexDir() string { return filepath.Join(s.dataDir, "index") }

func (s *FSStore) Publish(_ context.Context, snapshot *domain.IndexSnapshot) error {
	if len(snapshot.Vectors) != len(snapshot.Chunks) {
		return domain.WrapError(domain.ErrIndexCorrupt, "publish index",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(snapshot.Vectors), len(snapshot.Chunks)))
	}

	staging := filepath.Join(s.dataDir, "index.build-"+snapshot.Manifest.BuildID)
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := writeJSON(filepath.Join(staging, manifestFile), snapshot.Manifest); err != nil {
		return err
	}
	if err := writeJSONLines(filepath.Join(staging, metaFile), snapshot.Chunks); err != nil {
		return err
	}
	if err := writeJSONLines(filepath.Join(staging, vectorsFile), snapshot.Vectors); err != nil {
		return err
	}
	if len(snapshot.LexicalVectors) > 0 {
		if err := writeJSONLines(filepath.Join(staging, lexicalVectorsFile), snapshot.LexicalVectors); err != nil {
			return err
		}
	}
	if err := os.WriteFile(filepath.Join(staging, vectorizerFile), snapshot.VectorizerState, 0o644); err != nil {
		return fmt.Errorf("write vectorizer state: %w", err)
	}

	return s.swapIn(staging, snapshot.Manifest.BuildID)
}

// swapIn replaces the live index directory with the staged one. The old
// directory is moved aside first so a crash between the two renames
// cannot leave a half-written live index.
func (s *FSStore) swapIn(staging, buildID string) error {
	old := filepath.Join(s.dataDir, "index.old-"+buildID)
	if _, err := os.Stat(s.indexDir()); err == nil {
		if err := os.Rename(s.indexDir(), old); err != nil {
			return fmt.Errorf("retire previous index: %w", err)
		}
	}
	if err := os.Rename(staging, s.indexDir()); err != nil {
		return fmt.Errorf("publish index: %w", err)
	}
	os.RemoveAll(old)
	return nil
}

func (s *FSStore) Manifest(_ context.Context) (*domain.IndexManifest, error) {
	var manifest domain.IndexManifest
	if err := readJSON(filepath.Join(s.indexDir(), manifestFile), &manifest); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrIndexMissing, "read manifest", err)
		}
		return nil, domain.WrapError(domain.ErrIndexCorrupt, "read manifest", err)
	}
	return &manifest, nil
}

func (s *FSStore) Load(ctx context.Context) (*domain.IndexSnapshot, error) {
	manifest, err := s.Manifest(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &domain.IndexSnapshot{Manifest: *manifest}
	if err := readJSONLines(filepath.Join(s.indexDir(), metaFile), &snapshot.Chunks); err != nil {
		return nil, domain.WrapError(domain.ErrIndexCorrupt, "read chunk metadata", err)
	}
	if err := readJSONLines(filepath.Join(s.indexDir(), vectorsFile), &snapshot.Vectors); err != nil {
		return nil, domain.WrapError(domain.ErrIndexCorrupt, "read vectors", err)
	}
	if manifest.Mode == domain.ModeDense {
		if err := readJSONLines(filepath.Join(s.indexDir(), lexicalVectorsFile), &snapshot.LexicalVectors); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrIndexCorrupt, "read lexical vectors", err)
		}
	}
	state, err := os.ReadFile(filepath.Join(s.indexDir(), vectorizerFile))
	if err != nil {
		return nil, domain.WrapError(domain.ErrIndexCorrupt, "read vectorizer state", err)
	}
	snapshot.VectorizerState = state

	if err := validate(snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func validate(snapshot *domain.IndexSnapshot) error {
	manifest := snapshot.Manifest
	if manifest.Mode != domain.ModeSparse && manifest.Mode != domain.ModeDense {
		return domain.WrapError(domain.ErrIndexCorrupt, "validate index",
			fmt.Errorf("unknown mode %q", manifest.Mode))
	}
	if len(snapshot.Vectors) != len(snapshot.Chunks) || len(snapshot.Chunks) != manifest.Rows {
		return domain.WrapError(domain.ErrIndexCorrupt, "validate index",
			fmt.Errorf("row counts disagree: manifest=%d chunks=%d vectors=%d",
				manifest.Rows, len(snapshot.Chunks), len(snapshot.Vectors)))
	}
	if len(snapshot.LexicalVectors) > 0 && len(snapshot.LexicalVectors) != len(snapshot.Chunks) {
		return domain.WrapError(domain.ErrIndexCorrupt, "validate index",
			fmt.Errorf("lexical row count %d != %d", len(snapshot.LexicalVectors), len(snapshot.Chunks)))
	}
	if got := hashState(snapshot.VectorizerState); got != manifest.VectorizerHash {
		return domain.WrapError(domain.ErrIndexCorrupt, "validate index",
			fmt.Errorf("vectorizer hash %s != manifest %s", got, manifest.VectorizerHash))
	}
	return nil
}

func hashState(state []byte) string {
	h := fnv.New64a()
	_, _ = h.Write(state)
	return fmt.Sprintf("%016x", h.Sum64())
}

func writeJSON(path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func writeJSONLines[T any](path string, rows []T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := range rows {
		if err := enc.Encode(rows[i]); err != nil {
			return fmt.Errorf("encode %s row %d: %w", filepath.Base(path), i, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSONLines[T any](path string, out *[]T) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var row T
		if err := json.Unmarshal(line, &row); err != nil {
			return fmt.Errorf("decode %s row %d: %w", filepath.Base(path), len(*out), err)
		}
		*out = append(*out, row)
	}
	return scanner.Err()
}
