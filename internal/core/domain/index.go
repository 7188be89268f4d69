package domain

import "time"

// IndexMode selects which vector space backs the index. Chosen once at
// build time; the query path must use the matching projection.
type IndexMode string

const (
	ModeSparse IndexMode = "sparse"
	ModeDense  IndexMode = "dense"
)

type BuildStatus string

const (
	BuildStatusBuilding BuildStatus = "building"
	BuildStatusReady    BuildStatus = "ready"
	BuildStatusFailed   BuildStatus = "failed"
)

// IndexBuild records one full (re)build of the index.
type IndexBuild struct {
	ID            string      `json:"id"`
	Mode          IndexMode   `json:"mode"`
	Status        BuildStatus `json:"status"`
	DocumentCount int         `json:"document_count"`
	ChunkCount    int         `json:"chunk_count"`
	Error         string      `json:"error,omitempty"`
	StartedAt     time.Time   `json:"started_at"`
	FinishedAt    *time.Time  `json:"finished_at,omitempty"`
}

// SourceRecord is the registry row for one ingested source document.
type SourceRecord struct {
	ID         string    `json:"id"`
	BuildID    string    `json:"build_id"`
	Source     string    `json:"source"`
	Title      string    `json:"title"`
	DocType    DocType   `json:"doc_type"`
	Format     string    `json:"format"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// IndexManifest identifies one published index: its mode and the
// projection artifact queries must be embedded with. Vectors, metadata
// and vectorizer state travel together as one versioned unit keyed by
// BuildID.
type IndexManifest struct {
	BuildID        string    `json:"build_id"`
	Mode           IndexMode `json:"mode"`
	Rows           int       `json:"rows"`
	VectorizerHash string    `json:"vectorizer_hash"`
	EmbedModel     string    `json:"embed_model,omitempty"`
	BuiltAt        time.Time `json:"built_at"`
}

// IndexSnapshot is the in-memory form of the persisted index artifacts.
// Vectors[i] corresponds to Chunks[i] for all i; in dense mode
// LexicalVectors holds the TF-IDF fallback rows in the same order.
type IndexSnapshot struct {
	Manifest        IndexManifest
	Chunks          []Chunk
	Vectors         []Vector
	LexicalVectors  []Vector
	VectorizerState []byte
}

// SourceDocument is one loaded corpus document before chunking.
type SourceDocument struct {
	Source string
	Title  string
	Format string
	Units  []SourceUnit
}

// SourceUnit is an independently chunkable piece of a source document
// (whole text, a PDF page, or one pre-chunked JSONL record). Overrides
// are set only for pre-chunked records carrying their own metadata.
type SourceUnit struct {
	Text        string
	Source      string
	Title       string
	DocType     DocType
	VersionDate *string
	Page        *int
	PreChunked  bool
}
