package uploads

import (
	"context"
	"time"
)

// Repo defines persistence operations for uploads and their audit events.
// Row writes and the audit event they produce commit as one atomic unit.
type Repo interface {
	// Register inserts a new upload in RECEIVED status or replaces the file
	// metadata of an existing RECEIVED upload for the same
	// (doc_request_id, doc_type) pair. Only an OPEN request accepts uploads.
	// Emits a CREATED or FILE_UPLOADED event respectively.
	Register(ctx context.Context, up Upload, actorID string) (Upload, error)

	// Decide applies a status transition and emits a STATUS_CHANGED event
	// carrying the supplied note, or a generated one describing the
	// transition when the note is empty.
	Decide(ctx context.Context, id string, next Status, note, actorID string, now time.Time) (Upload, error)

	// AppendNote records a NOTE_ADDED event without touching the upload row.
	AppendNote(ctx context.Context, id, note, actorID string, now time.Time) (Event, error)

	GetByID(ctx context.Context, id string) (Upload, error)
	ListByRequest(ctx context.Context, docRequestID string) ([]Upload, error)
	ListEvents(ctx context.Context, uploadID string) ([]Event, error)
}
