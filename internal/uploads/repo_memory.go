package uploads

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"docgate-backend/internal/docrequests"
)

// RequestStatusFunc reports the current status of a doc request. Invoked with
// the shared lock held, so implementations must not take it again. Wired by
// bootstrap to the docrequests memory repo.
type RequestStatusFunc func(ctx context.Context, docRequestID string) (docrequests.Status, error)

// MemoryRepo is an in-memory implementation of Repo. It shares one mutex with
// the docrequests memory repo, so the request-open check and the upload write
// form a single critical section and no request transition can interleave.
// This matches the atomicity the Postgres implementation gets from locking
// the request row FOR UPDATE.
type MemoryRepo struct {
	mu            *sync.Mutex
	byID          map[string]Upload
	byPair        map[string]string // doc_request_id + "\x00" + doc_type -> upload id
	events        map[string][]Event
	nextEventID   int64
	requestStatus RequestStatusFunc
}

// NewMemoryRepo constructs a MemoryRepo. The mutex is the docrequests memory
// repo's (via its Locker method).
func NewMemoryRepo(mu *sync.Mutex, requestStatus RequestStatusFunc) *MemoryRepo {
	return &MemoryRepo{
		mu:            mu,
		byID:          make(map[string]Upload),
		byPair:        make(map[string]string),
		events:        make(map[string][]Event),
		requestStatus: requestStatus,
	}
}

func pairKey(docRequestID, docType string) string {
	return docRequestID + "\x00" + docType
}

// Register inserts a new upload or replaces a RECEIVED one in place. The
// owning request's status is checked under the shared lock, so the request
// cannot close between the check and the write.
func (r *MemoryRepo) Register(ctx context.Context, up Upload, actorID string) (Upload, error) {
	if err := ctx.Err(); err != nil {
		return Upload{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	status, err := r.requestStatus(ctx, up.DocRequestID)
	if err != nil {
		return Upload{}, ErrRequestNotFound
	}
	if status != docrequests.StatusOpen {
		return Upload{}, ErrRequestClosed
	}

	key := pairKey(up.DocRequestID, up.DocType)
	existingID, exists := r.byPair[key]
	if !exists {
		up.Status = StatusReceived
		r.byID[up.ID] = up
		r.byPair[key] = up.ID
		r.appendEventLocked(up.ID, EventCreated, ActorCarrier, actorID, "", up.CreatedAt)
		return up, nil
	}

	existing := r.byID[existingID]
	if existing.Status != StatusReceived {
		return Upload{}, ErrReplaceDenied
	}
	existing.FileName = up.FileName
	existing.ContentType = up.ContentType
	existing.SizeBytes = up.SizeBytes
	existing.Checksum = up.Checksum
	existing.StorageBucket = up.StorageBucket
	existing.StorageKey = up.StorageKey
	existing.UpdatedAt = up.UpdatedAt
	r.byID[existingID] = existing
	r.appendEventLocked(existingID, EventFileUploaded, ActorCarrier, actorID, "", up.UpdatedAt)
	return existing, nil
}

// Decide applies a status transition and records the event.
func (r *MemoryRepo) Decide(ctx context.Context, id string, next Status, note, actorID string, now time.Time) (Upload, error) {
	if err := ctx.Err(); err != nil {
		return Upload{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	up, ok := r.byID[id]
	if !ok {
		return Upload{}, ErrNotFound
	}
	if !CanTransition(up.Status, next) {
		return Upload{}, ErrInvalidTransition
	}
	if note == "" {
		note = fmt.Sprintf("status changed %s -> %s", up.Status, next)
	}
	up.Status = next
	up.UpdatedAt = now
	r.byID[id] = up
	r.appendEventLocked(id, EventStatusChanged, ActorBroker, actorID, note, now)
	return up, nil
}

// AppendNote records a NOTE_ADDED event.
func (r *MemoryRepo) AppendNote(ctx context.Context, id, note, actorID string, now time.Time) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return Event{}, ErrNotFound
	}
	ev := r.appendEventLocked(id, EventNoteAdded, ActorBroker, actorID, note, now)
	return ev, nil
}

// GetByID returns an upload by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Upload, error) {
	if err := ctx.Err(); err != nil {
		return Upload{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	up, ok := r.byID[id]
	if !ok {
		return Upload{}, ErrNotFound
	}
	return up, nil
}

// ListByRequest lists a request's uploads ordered by doc_type.
func (r *MemoryRepo) ListByRequest(ctx context.Context, docRequestID string) ([]Upload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Upload
	for _, up := range r.byID {
		if up.DocRequestID == docRequestID {
			out = append(out, up)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocType < out[j].DocType })
	return out, nil
}

// ListEvents returns an upload's audit history in insertion order.
func (r *MemoryRepo) ListEvents(ctx context.Context, uploadID string) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	events := r.events[uploadID]
	out := make([]Event, len(events))
	copy(out, events)
	return out, nil
}

// UploadedTypes reports the doc_type values present for a request. Wired into
// the docrequests memory repo for the submit completeness check, which calls
// it with the shared lock held.
func (r *MemoryRepo) UploadedTypes(ctx context.Context, docRequestID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []string
	for _, up := range r.byID {
		if up.DocRequestID == docRequestID {
			out = append(out, up.DocType)
		}
	}
	return out, nil
}

func (r *MemoryRepo) appendEventLocked(uploadID string, eventType EventType, actorType ActorType, actorID, note string, now time.Time) Event {
	r.nextEventID++
	ev := Event{
		ID:        r.nextEventID,
		UploadID:  uploadID,
		EventType: eventType,
		ActorType: actorType,
		ActorID:   actorID,
		Note:      note,
		CreatedAt: now,
	}
	r.events[uploadID] = append(r.events[uploadID], ev)
	return ev
}

var _ Repo = (*MemoryRepo)(nil)
