package uploads

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service contains business logic for uploads.
type Service struct {
	Repo Repo
}

// RegisterInput carries a carrier's file registration.
type RegisterInput struct {
	DocRequestID  string
	DocType       string
	FileName      string
	ContentType   string
	SizeBytes     int64
	Checksum      string
	StorageBucket string
	StorageKey    string
	ActorID       string
}

// Register records a carrier's uploaded file against a required document
// type. The file bytes are already in object storage; the core only stores
// the opaque locator.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Upload, error) {
	in.DocRequestID = strings.TrimSpace(in.DocRequestID)
	in.DocType = strings.TrimSpace(in.DocType)
	in.FileName = strings.TrimSpace(in.FileName)
	if in.DocRequestID == "" || in.DocType == "" || in.FileName == "" {
		return Upload{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.StorageBucket) == "" || strings.TrimSpace(in.StorageKey) == "" {
		return Upload{}, ErrInvalidInput
	}
	if in.SizeBytes <= 0 {
		return Upload{}, ErrInvalidInput
	}

	now := time.Now().UTC()
	up := Upload{
		ID:            uuid.NewString(),
		DocRequestID:  in.DocRequestID,
		DocType:       in.DocType,
		FileName:      in.FileName,
		ContentType:   in.ContentType,
		SizeBytes:     in.SizeBytes,
		Checksum:      in.Checksum,
		StorageBucket: in.StorageBucket,
		StorageKey:    in.StorageKey,
		Status:        StatusReceived,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return s.Repo.Register(ctx, up, in.ActorID)
}

// Decide applies a broker's verdict to an upload.
func (s *Service) Decide(ctx context.Context, id string, next Status, note, actorID string) (Upload, error) {
	if strings.TrimSpace(id) == "" {
		return Upload{}, ErrNotFound
	}
	// RECEIVED is the entry status, never a decision target.
	if !next.Valid() || next == StatusReceived {
		return Upload{}, ErrInvalidTransition
	}
	return s.Repo.Decide(ctx, id, next, strings.TrimSpace(note), actorID, time.Now().UTC())
}

// AppendNote attaches a free-text audit note to an upload.
func (s *Service) AppendNote(ctx context.Context, id, note, actorID string) (Event, error) {
	if strings.TrimSpace(id) == "" {
		return Event{}, ErrNotFound
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return Event{}, ErrInvalidInput
	}
	return s.Repo.AppendNote(ctx, id, note, actorID, time.Now().UTC())
}

// Get returns an upload by ID.
func (s *Service) Get(ctx context.Context, id string) (Upload, error) {
	if strings.TrimSpace(id) == "" {
		return Upload{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, id)
}

// ListByRequest returns a request's uploads.
func (s *Service) ListByRequest(ctx context.Context, docRequestID string) ([]Upload, error) {
	if strings.TrimSpace(docRequestID) == "" {
		return nil, ErrRequestNotFound
	}
	return s.Repo.ListByRequest(ctx, docRequestID)
}

// Events returns an upload's audit history.
func (s *Service) Events(ctx context.Context, uploadID string) ([]Event, error) {
	if strings.TrimSpace(uploadID) == "" {
		return nil, ErrNotFound
	}
	if _, err := s.Repo.GetByID(ctx, uploadID); err != nil {
		return nil, err
	}
	return s.Repo.ListEvents(ctx, uploadID)
}
