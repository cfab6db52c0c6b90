package uploads

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func mockUpload(now time.Time) Upload {
	return Upload{
		ID:            "up-1",
		DocRequestID:  "req-1",
		DocType:       "coi",
		FileName:      "coi.pdf",
		ContentType:   "application/pdf",
		SizeBytes:     2048,
		StorageBucket: "docs",
		StorageKey:    "doc-requests/req-1/coi",
		Status:        StatusReceived,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestPGRepoRegisterInsertsAndRecordsCreatedEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()
	up := mockUpload(now)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM doc_requests").
		WithArgs(up.DocRequestID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("OPEN"))
	mock.ExpectQuery("INSERT INTO uploads").
		WithArgs(
			up.ID, up.DocRequestID, up.DocType, up.FileName, up.ContentType, up.SizeBytes,
			nil, // checksum unset
			up.StorageBucket, up.StorageKey, StatusReceived, up.CreatedAt, up.UpdatedAt,
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(up.ID))
	mock.ExpectExec("INSERT INTO upload_events").
		WithArgs(up.ID, EventCreated, ActorCarrier, "carrier-user", nil, up.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	got, err := repo.Register(context.Background(), up, "carrier-user")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got.Status != StatusReceived {
		t.Fatalf("expected RECEIVED, got %s", got.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoRegisterRejectsClosedRequest(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	up := mockUpload(time.Now().UTC())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM doc_requests").
		WithArgs(up.DocRequestID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("SUBMITTED"))
	mock.ExpectRollback()

	if _, err := repo.Register(context.Background(), up, "carrier-user"); !errors.Is(err, ErrRequestClosed) {
		t.Fatalf("expected ErrRequestClosed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoRegisterConflictFallsThroughToReplace(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()
	up := mockUpload(now)
	up.FileName = "coi-v2.pdf"

	uploadRows := func(status Status) *sqlmock.Rows {
		return sqlmock.NewRows([]string{
			"id", "doc_request_id", "doc_type", "file_name", "content_type", "size_bytes",
			"checksum", "storage_bucket", "storage_key", "status", "created_at", "updated_at",
		}).AddRow("existing-1", up.DocRequestID, up.DocType, "coi.pdf", "application/pdf", int64(1024),
			nil, "docs", "doc-requests/req-1/coi", status, now.Add(-time.Hour), now.Add(-time.Hour))
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM doc_requests").
		WithArgs(up.DocRequestID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("OPEN"))
	// DO NOTHING on conflict yields no returned row.
	mock.ExpectQuery("INSERT INTO uploads").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("SELECT id, doc_request_id, doc_type").
		WithArgs(up.DocRequestID, up.DocType).
		WillReturnRows(uploadRows(StatusReceived))
	mock.ExpectExec("UPDATE uploads").
		WithArgs(up.FileName, up.ContentType, up.SizeBytes, nil, up.StorageBucket, up.StorageKey, up.UpdatedAt,
			"existing-1", StatusReceived).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO upload_events").
		WithArgs("existing-1", EventFileUploaded, ActorCarrier, "carrier-user", nil, up.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	got, err := repo.Register(context.Background(), up, "carrier-user")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got.ID != "existing-1" {
		t.Fatalf("expected replace to keep existing id, got %s", got.ID)
	}
	if got.FileName != "coi-v2.pdf" {
		t.Fatalf("expected replaced metadata, got %s", got.FileName)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoRegisterReplaceDeniedAfterDecision(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()
	up := mockUpload(now)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM doc_requests").
		WithArgs(up.DocRequestID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("OPEN"))
	mock.ExpectQuery("INSERT INTO uploads").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("SELECT id, doc_request_id, doc_type").
		WithArgs(up.DocRequestID, up.DocType).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "doc_request_id", "doc_type", "file_name", "content_type", "size_bytes",
			"checksum", "storage_bucket", "storage_key", "status", "created_at", "updated_at",
		}).AddRow("existing-1", up.DocRequestID, up.DocType, "coi.pdf", "application/pdf", int64(1024),
			nil, "docs", "doc-requests/req-1/coi", StatusAccepted, now.Add(-time.Hour), now.Add(-time.Hour)))
	mock.ExpectRollback()

	if _, err := repo.Register(context.Background(), up, "carrier-user"); !errors.Is(err, ErrReplaceDenied) {
		t.Fatalf("expected ErrReplaceDenied, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoDecideWritesStatusAndEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, doc_request_id, doc_type").
		WithArgs("up-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "doc_request_id", "doc_type", "file_name", "content_type", "size_bytes",
			"checksum", "storage_bucket", "storage_key", "status", "created_at", "updated_at",
		}).AddRow("up-1", "req-1", "coi", "coi.pdf", "application/pdf", int64(1024),
			nil, "docs", "doc-requests/req-1/coi", StatusReceived, now.Add(-time.Hour), now.Add(-time.Hour)))
	mock.ExpectExec("UPDATE uploads").
		WithArgs(StatusAccepted, now, "up-1", StatusReceived).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO upload_events").
		WithArgs("up-1", EventStatusChanged, ActorBroker, "broker-user", "looks valid", now).
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	got, err := repo.Decide(context.Background(), "up-1", StatusAccepted, "looks valid", "broker-user", now)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if got.Status != StatusAccepted {
		t.Fatalf("expected ACCEPTED, got %s", got.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoDecideRejectsTerminalUpload(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, doc_request_id, doc_type").
		WithArgs("up-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "doc_request_id", "doc_type", "file_name", "content_type", "size_bytes",
			"checksum", "storage_bucket", "storage_key", "status", "created_at", "updated_at",
		}).AddRow("up-1", "req-1", "coi", "coi.pdf", "application/pdf", int64(1024),
			nil, "docs", "doc-requests/req-1/coi", StatusRejected, now.Add(-time.Hour), now.Add(-time.Hour)))
	mock.ExpectRollback()

	if _, err := repo.Decide(context.Background(), "up-1", StatusAccepted, "", "broker-user", now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
