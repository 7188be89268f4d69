package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/askerfotball/club-assistant/internal/core/domain"
)

func newRegistryWithMock(t *testing.T) (*BuildRegistry, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewBuildRegistry(db), mock
}

func TestRecordBuildInsertsRow(t *testing.T) {
	registry, mock := newRegistryWithMock(t)

	build := &domain.IndexBuild{
		ID:        "b1",
		Mode:      domain.ModeSparse,
		Status:    domain.BuildStatusBuilding,
		StartedAt: time.Now().UTC(),
	}
	mock.ExpectExec("INSERT INTO index_builds").
		WithArgs(build.ID, "sparse", "building", 0, 0, "", build.StartedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := registry.RecordBuild(context.Background(), build); err != nil {
		t.Fatalf("RecordBuild() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFinishBuildUnknownIDReturnsNotFound(t *testing.T) {
	registry, mock := newRegistryWithMock(t)

	mock.ExpectExec("UPDATE index_builds").
		WithArgs("missing", "ready", "", 3, 42, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := registry.FinishBuild(context.Background(), "missing", domain.BuildStatusReady, "", 3, 42)
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFinishBuildUpdatesCounts(t *testing.T) {
	registry, mock := newRegistryWithMock(t)

	mock.ExpectExec("UPDATE index_builds").
		WithArgs("b1", "failed", "load corpus: boom", 0, 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := registry.FinishBuild(context.Background(), "b1", domain.BuildStatusFailed, "load corpus: boom", 0, 0)
	if err != nil {
		t.Fatalf("FinishBuild() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordSourceInsertsRow(t *testing.T) {
	registry, mock := newRegistryWithMock(t)

	source := &domain.SourceRecord{
		ID:         "s1",
		BuildID:    "b1",
		Source:     "kb/billetter.md",
		Title:      "Billetter",
		DocType:    domain.DocTypeTicketing,
		Format:     "md",
		ChunkCount: 4,
		CreatedAt:  time.Now().UTC(),
	}
	mock.ExpectExec("INSERT INTO index_sources").
		WithArgs(source.ID, source.BuildID, source.Source, source.Title, "ticketing", "md", 4, source.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := registry.RecordSource(context.Background(), source); err != nil {
		t.Fatalf("RecordSource() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLatestBuildScansRow(t *testing.T) {
	registry, mock := newRegistryWithMock(t)

	started := time.Now().UTC().Add(-time.Minute)
	finished := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "mode", "status", "document_count", "chunk_count", "error_message", "started_at", "finished_at"}).
		AddRow("b2", "dense", "ready", 12, 340, "", started, finished)
	mock.ExpectQuery("SELECT id, mode, status").WillReturnRows(rows)

	build, err := registry.LatestBuild(context.Background())
	if err != nil {
		t.Fatalf("LatestBuild() error = %v", err)
	}
	if build.ID != "b2" || build.Mode != domain.ModeDense || build.Status != domain.BuildStatusReady {
		t.Fatalf("unexpected build %+v", build)
	}
	if build.FinishedAt == nil || !build.FinishedAt.Equal(finished) {
		t.Fatalf("finished_at lost: %+v", build.FinishedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLatestBuildEmptyTableReturnsNotFound(t *testing.T) {
	registry, mock := newRegistryWithMock(t)

	mock.ExpectQuery("SELECT id, mode, status").WillReturnError(sql.ErrNoRows)

	_, err := registry.LatestBuild(context.Background())
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
