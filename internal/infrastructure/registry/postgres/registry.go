package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/askerfotball/club-assistant/internal/core/domain"
)

// schemaLockKey serializes bootstrap DDL across api/indexer startups.
const schemaLockKey = int64(2026052301)

// BuildRegistry records index builds and their ingested sources in
// Postgres. The registry is provenance, not the index itself: the
// filesystem artifact stays authoritative for serving.
type BuildRegistry struct {
	db *sql.DB
}

func NewBuildRegistry(db *sql.DB) *BuildRegistry {
	return &BuildRegistry{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *BuildRegistry) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS index_builds (
	id TEXT PRIMARY KEY,
	mode TEXT NOT NULL,
	status TEXT NOT NULL,
	document_count INTEGER NOT NULL DEFAULT 0,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS index_sources (
	id TEXT PRIMARY KEY,
	build_id TEXT NOT NULL REFERENCES index_builds(id) ON DELETE CASCADE,
	source TEXT NOT NULL,
	title TEXT NOT NULL,
	doc_type TEXT NOT NULL,
	format TEXT NOT NULL,
	chunk_count INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_index_builds_started_at ON index_builds(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_index_sources_build_id ON index_sources(build_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *BuildRegistry) RecordBuild(ctx context.Context, build *domain.IndexBuild) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO index_builds (id, mode, status, document_count, chunk_count, error_message, started_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, build.ID, string(build.Mode), string(build.Status), build.DocumentCount, build.ChunkCount, build.Error, build.StartedAt)
	if err != nil {
		return fmt.Errorf("insert build: %w", err)
	}
	return nil
}

func (r *BuildRegistry) FinishBuild(ctx context.Context, buildID string, status domain.BuildStatus, errMessage string, documentCount, chunkCount int) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE index_builds
SET status = $2, error_message = $3, document_count = $4, chunk_count = $5, finished_at = $6
WHERE id = $1
`, buildID, string(status), errMessage, documentCount, chunkCount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("finish build: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish build rows: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, "finish build", fmt.Errorf("build %s", buildID))
	}
	return nil
}

func (r *BuildRegistry) RecordSource(ctx context.Context, source *domain.SourceRecord) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO index_sources (id, build_id, source, title, doc_type, format, chunk_count, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, source.ID, source.BuildID, source.Source, source.Title, string(source.DocType), source.Format, source.ChunkCount, source.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	return nil
}

func (r *BuildRegistry) LatestBuild(ctx context.Context) (*domain.IndexBuild, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, mode, status, document_count, chunk_count, COALESCE(error_message, ''), started_at, finished_at
FROM index_builds
ORDER BY started_at DESC
LIMIT 1
`)

	var build domain.IndexBuild
	var mode, status string
	var finishedAt sql.NullTime
	err := row.Scan(&build.ID, &mode, &status, &build.DocumentCount, &build.ChunkCount, &build.Error, &build.StartedAt, &finishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "latest build", err)
		}
		return nil, fmt.Errorf("scan build: %w", err)
	}
	build.Mode = domain.IndexMode(mode)
	build.Status = domain.BuildStatus(status)
	if finishedAt.Valid {
		t := finishedAt.Time
		build.FinishedAt = &t
	}
	return &build, nil
}
