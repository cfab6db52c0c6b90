package docrequests

import (
	"context"
	"sync"
	"time"

	"docgate-backend/internal/tokens"
)

// UploadedTypesFunc reports the doc_type values that currently have an
// upload row for a request. Wired by bootstrap so the memory repo can run
// the submit completeness check without importing the uploads package.
// Invoked with the shared lock held; implementations must not take it again.
type UploadedTypesFunc func(ctx context.Context, docRequestID string) ([]string, error)

// MemoryRepo is an in-memory implementation of Repo. One mutex covers every
// read-check-write sequence, and the uploads memory repo shares it (via
// Locker), so cross-entity sequences like the request-open check before an
// upload insert are a single critical section. This matches the atomicity the
// Postgres implementation gets from transactions and row locks.
type MemoryRepo struct {
	mu            sync.Mutex
	requests      map[string]DocRequest
	tokensByHash  map[string]tokens.Token
	uploadedTypes UploadedTypesFunc
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		requests:     make(map[string]DocRequest),
		tokensByHash: make(map[string]tokens.Token),
	}
}

// Locker exposes the repo's mutex. The uploads memory repo locks through it
// so no status check can interleave with a request transition.
func (r *MemoryRepo) Locker() *sync.Mutex {
	return &r.mu
}

// SetUploadedTypesFunc wires the uploads view used by Submit.
func (r *MemoryRepo) SetUploadedTypesFunc(fn UploadedTypesFunc) {
	r.uploadedTypes = fn
}

// Create stores the request and its token.
func (r *MemoryRepo) Create(ctx context.Context, req DocRequest, tok tokens.Token) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[req.ID] = req
	r.tokensByHash[tok.TokenHash] = tok
	return nil
}

// GetByID returns a request by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (DocRequest, error) {
	if err := ctx.Err(); err != nil {
		return DocRequest{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return DocRequest{}, ErrNotFound
	}
	return req, nil
}

// StatusOf returns the current status of a request. Called by the uploads
// memory repo inside the shared critical section; the caller holds the lock.
func (r *MemoryRepo) StatusOf(ctx context.Context, id string) (Status, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	req, ok := r.requests[id]
	if !ok {
		return "", ErrNotFound
	}
	return req.Status, nil
}

// Submit transitions an OPEN request to SUBMITTED after the completeness
// check. The check runs inside the critical section so no upload can appear
// or vanish between it and the status write.
func (r *MemoryRepo) Submit(ctx context.Context, id string, now time.Time) (DocRequest, error) {
	if err := ctx.Err(); err != nil {
		return DocRequest{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return DocRequest{}, ErrNotFound
	}
	if req.Status != StatusOpen {
		return DocRequest{}, ErrInvalidTransition
	}

	var present []string
	if r.uploadedTypes != nil {
		var err error
		present, err = r.uploadedTypes(ctx, id)
		if err != nil {
			return DocRequest{}, err
		}
	}

	have := make(map[string]struct{}, len(present))
	for _, docType := range present {
		have[docType] = struct{}{}
	}
	var missing []string
	for _, docType := range req.RequiredTypes() {
		if _, ok := have[docType]; !ok {
			missing = append(missing, docType)
		}
	}
	if len(missing) > 0 {
		return DocRequest{}, &MissingDocumentsError{Missing: missing}
	}

	req.Status = StatusSubmitted
	req.SubmittedAt = &now
	req.UpdatedAt = now
	r.requests[id] = req
	return req, nil
}

// Cancel transitions an OPEN request to CANCELED.
func (r *MemoryRepo) Cancel(ctx context.Context, id string, now time.Time) (DocRequest, error) {
	if err := ctx.Err(); err != nil {
		return DocRequest{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return DocRequest{}, ErrNotFound
	}
	if req.Status != StatusOpen {
		return DocRequest{}, ErrInvalidTransition
	}
	req.Status = StatusCanceled
	req.UpdatedAt = now
	r.requests[id] = req
	return req, nil
}

// ResolveToken redeems a token; first caller through the lock wins.
func (r *MemoryRepo) ResolveToken(ctx context.Context, tokenHash string, now time.Time) (ResolvedAccess, error) {
	if err := ctx.Err(); err != nil {
		return ResolvedAccess{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	tok, ok := r.tokensByHash[tokenHash]
	if !ok {
		return ResolvedAccess{}, tokens.ErrNotFound
	}
	switch {
	case tok.IsRevoked:
		return ResolvedAccess{}, tokens.ErrRevoked
	case tok.UsedAt != nil:
		return ResolvedAccess{}, tokens.ErrAlreadyUsed
	case !now.Before(tok.ExpiresAt):
		return ResolvedAccess{}, tokens.ErrExpired
	}
	req, ok := r.requests[tok.DocRequestID]
	if !ok {
		return ResolvedAccess{}, ErrNotFound
	}
	if req.Status == StatusExpired || req.Status == StatusCanceled {
		return ResolvedAccess{}, ErrRequestClosed
	}

	used := now
	tok.UsedAt = &used
	r.tokensByHash[tokenHash] = tok
	return ResolvedAccess{Request: req, Token: tok}, nil
}

// RevokeToken revokes every unrevoked token for the request.
func (r *MemoryRepo) RevokeToken(ctx context.Context, docRequestID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	revoked := false
	for hash, tok := range r.tokensByHash {
		if tok.DocRequestID == docRequestID && !tok.IsRevoked {
			tok.IsRevoked = true
			r.tokensByHash[hash] = tok
			revoked = true
		}
	}
	if !revoked {
		return tokens.ErrNotFound
	}
	return nil
}

// SweepExpired moves overdue non-terminal requests to EXPIRED.
func (r *MemoryRepo) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for id, req := range r.requests {
		if req.ExpiresAt.Before(now) && req.Status != StatusExpired && req.Status != StatusCanceled {
			req.Status = StatusExpired
			req.UpdatedAt = now
			r.requests[id] = req
			count++
		}
	}
	return count, nil
}

var _ Repo = (*MemoryRepo)(nil)
