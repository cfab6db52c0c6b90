package uploads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"docgate-backend/internal/docrequests"
)

// PGRepo implements Repo using Postgres. The (doc_request_id, doc_type)
// uniqueness invariant is enforced by the store's constraint; a conflicting
// concurrent insert is retried as a replace rather than surfaced.
type PGRepo struct {
	DB *sql.DB
}

const uploadColumns = `id, doc_request_id, doc_type, file_name, content_type, size_bytes, checksum, storage_bucket, storage_key, status, created_at, updated_at`

// Register inserts or replaces the upload for its (doc_request_id, doc_type)
// pair. The owning request row is locked first, so registrations against one
// request serialize and the open check holds through the write.
func (r *PGRepo) Register(ctx context.Context, up Upload, actorID string) (Upload, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Upload{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var reqStatus string
	row := tx.QueryRowContext(ctx, `
SELECT status FROM doc_requests WHERE id = $1 FOR UPDATE`, up.DocRequestID)
	if err = row.Scan(&reqStatus); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrRequestNotFound
		}
		return Upload{}, err
	}
	if reqStatus != string(docrequests.StatusOpen) {
		err = ErrRequestClosed
		return Upload{}, err
	}

	var insertedID string
	err = tx.QueryRowContext(ctx, `
INSERT INTO uploads (`+uploadColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (doc_request_id, doc_type) DO NOTHING
RETURNING id`,
		up.ID, up.DocRequestID, up.DocType, up.FileName, up.ContentType, up.SizeBytes,
		nullString(up.Checksum), up.StorageBucket, up.StorageKey, StatusReceived, up.CreatedAt, up.UpdatedAt,
	).Scan(&insertedID)
	switch {
	case err == nil:
		up.Status = StatusReceived
		if err = insertEvent(ctx, tx, up.ID, EventCreated, ActorCarrier, actorID, "", up.CreatedAt); err != nil {
			return Upload{}, err
		}
		if err = tx.Commit(); err != nil {
			return Upload{}, err
		}
		return up, nil
	case errors.Is(err, sql.ErrNoRows):
		// A row for the pair already exists; fall through to the replace path.
		err = nil
	default:
		return Upload{}, err
	}

	var existing Upload
	row = tx.QueryRowContext(ctx, `
SELECT `+uploadColumns+`
FROM uploads
WHERE doc_request_id = $1 AND doc_type = $2
FOR UPDATE`, up.DocRequestID, up.DocType)
	existing, err = scanUpload(row)
	if err != nil {
		return Upload{}, err
	}
	if existing.Status != StatusReceived {
		err = ErrReplaceDenied
		return Upload{}, err
	}

	res, err := tx.ExecContext(ctx, `
UPDATE uploads
SET file_name = $1, content_type = $2, size_bytes = $3, checksum = $4, storage_bucket = $5, storage_key = $6, updated_at = $7
WHERE id = $8 AND status = $9`,
		up.FileName, up.ContentType, up.SizeBytes, nullString(up.Checksum), up.StorageBucket, up.StorageKey, up.UpdatedAt,
		existing.ID, StatusReceived)
	if err != nil {
		return Upload{}, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		err = ErrReplaceDenied
		return Upload{}, err
	}

	if err = insertEvent(ctx, tx, existing.ID, EventFileUploaded, ActorCarrier, actorID, "", up.UpdatedAt); err != nil {
		return Upload{}, err
	}
	if err = tx.Commit(); err != nil {
		return Upload{}, err
	}

	existing.FileName = up.FileName
	existing.ContentType = up.ContentType
	existing.SizeBytes = up.SizeBytes
	existing.Checksum = up.Checksum
	existing.StorageBucket = up.StorageBucket
	existing.StorageKey = up.StorageKey
	existing.UpdatedAt = up.UpdatedAt
	return existing, nil
}

// Decide applies a status transition under a row lock; the transition check
// and the write are indivisible.
func (r *PGRepo) Decide(ctx context.Context, id string, next Status, note, actorID string, now time.Time) (Upload, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Upload{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	row := tx.QueryRowContext(ctx, `
SELECT `+uploadColumns+`
FROM uploads
WHERE id = $1
FOR UPDATE`, id)
	up, err := scanUpload(row)
	if err != nil {
		return Upload{}, err
	}
	if !CanTransition(up.Status, next) {
		err = ErrInvalidTransition
		return Upload{}, err
	}

	res, err := tx.ExecContext(ctx, `
UPDATE uploads
SET status = $1, updated_at = $2
WHERE id = $3 AND status = $4`, next, now, id, up.Status)
	if err != nil {
		return Upload{}, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		err = ErrInvalidTransition
		return Upload{}, err
	}

	if note == "" {
		note = fmt.Sprintf("status changed %s -> %s", up.Status, next)
	}
	if err = insertEvent(ctx, tx, id, EventStatusChanged, ActorBroker, actorID, note, now); err != nil {
		return Upload{}, err
	}
	if err = tx.Commit(); err != nil {
		return Upload{}, err
	}

	up.Status = next
	up.UpdatedAt = now
	return up, nil
}

// AppendNote records a NOTE_ADDED event for an existing upload.
func (r *PGRepo) AppendNote(ctx context.Context, id, note, actorID string, now time.Time) (Event, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Event{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var exists string
	row := tx.QueryRowContext(ctx, `SELECT id FROM uploads WHERE id = $1`, id)
	if err = row.Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotFound
		}
		return Event{}, err
	}

	if err = insertEvent(ctx, tx, id, EventNoteAdded, ActorBroker, actorID, note, now); err != nil {
		return Event{}, err
	}
	if err = tx.Commit(); err != nil {
		return Event{}, err
	}

	return Event{UploadID: id, EventType: EventNoteAdded, ActorType: ActorBroker, ActorID: actorID, Note: note, CreatedAt: now}, nil
}

// GetByID fetches an upload by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Upload, error) {
	row := r.DB.QueryRowContext(ctx, `
SELECT `+uploadColumns+`
FROM uploads
WHERE id = $1`, id)
	return scanUpload(row)
}

// ListByRequest lists a request's uploads ordered by doc_type.
func (r *PGRepo) ListByRequest(ctx context.Context, docRequestID string) ([]Upload, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT `+uploadColumns+`
FROM uploads
WHERE doc_request_id = $1
ORDER BY doc_type`, docRequestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Upload
	for rows.Next() {
		up, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, up)
	}
	return out, rows.Err()
}

// ListEvents returns an upload's audit history in canonical order.
func (r *PGRepo) ListEvents(ctx context.Context, uploadID string) ([]Event, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT id, upload_id, event_type, actor_type, actor_id, note, created_at
FROM upload_events
WHERE upload_id = $1
ORDER BY created_at, id`, uploadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		var actorID, note sql.NullString
		if err := rows.Scan(&ev.ID, &ev.UploadID, &ev.EventType, &ev.ActorType, &actorID, &note, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if actorID.Valid {
			ev.ActorID = actorID.String
		}
		if note.Valid {
			ev.Note = note.String
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func insertEvent(ctx context.Context, tx *sql.Tx, uploadID string, eventType EventType, actorType ActorType, actorID, note string, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO upload_events (upload_id, event_type, actor_type, actor_id, note, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		uploadID, eventType, actorType, nullString(actorID), nullString(note), now)
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUpload(row rowScanner) (Upload, error) {
	var up Upload
	var checksum sql.NullString
	err := row.Scan(
		&up.ID,
		&up.DocRequestID,
		&up.DocType,
		&up.FileName,
		&up.ContentType,
		&up.SizeBytes,
		&checksum,
		&up.StorageBucket,
		&up.StorageKey,
		&up.Status,
		&up.CreatedAt,
		&up.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Upload{}, ErrNotFound
		}
		return Upload{}, err
	}
	if checksum.Valid {
		up.Checksum = checksum.String
	}
	return up, nil
}

var _ Repo = (*PGRepo)(nil)
