package docrequests

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"docgate-backend/internal/tokens"
)

// Service contains business logic for document requests.
type Service struct {
	Repo Repo
}

// CreateInput carries the broker's intake request parameters.
type CreateInput struct {
	BrokerOrgID    string
	CarrierOrgID   string
	VerificationID string
	RequiredDocs   []RequiredDoc
	TTLMinutes     int
}

// CreateResult is returned once; the raw token is never recoverable later.
type CreateResult struct {
	Request  DocRequest
	RawToken string
}

// Create validates the input, issues the single-use access token, and
// persists the request and token as one atomic unit. No row is written when
// validation fails.
func (s *Service) Create(ctx context.Context, in CreateInput) (CreateResult, error) {
	in.BrokerOrgID = strings.TrimSpace(in.BrokerOrgID)
	if in.BrokerOrgID == "" {
		return CreateResult{}, ErrInvalidInput
	}
	if err := ValidateRequiredDocs(in.RequiredDocs); err != nil {
		return CreateResult{}, err
	}

	now := time.Now().UTC()
	req := DocRequest{
		ID:             uuid.NewString(),
		BrokerOrgID:    in.BrokerOrgID,
		CarrierOrgID:   strings.TrimSpace(in.CarrierOrgID),
		VerificationID: strings.TrimSpace(in.VerificationID),
		RequiredDocs:   in.RequiredDocs,
		Status:         StatusOpen,
		ExpiresAt:      now.Add(ClampTTL(in.TTLMinutes)),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	raw, hash, err := tokens.Generate()
	if err != nil {
		return CreateResult{}, err
	}
	tok := tokens.Token{
		ID:           uuid.NewString(),
		DocRequestID: req.ID,
		TokenHash:    hash,
		ExpiresAt:    req.ExpiresAt,
		CreatedAt:    now,
	}

	if err := s.Repo.Create(ctx, req, tok); err != nil {
		return CreateResult{}, err
	}
	return CreateResult{Request: req, RawToken: raw}, nil
}

// Get returns a request by ID.
func (s *Service) Get(ctx context.Context, id string) (DocRequest, error) {
	if strings.TrimSpace(id) == "" {
		return DocRequest{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, id)
}

// Submit closes an OPEN request once every required document is present.
func (s *Service) Submit(ctx context.Context, id string) (DocRequest, error) {
	if strings.TrimSpace(id) == "" {
		return DocRequest{}, ErrNotFound
	}
	return s.Repo.Submit(ctx, id, time.Now().UTC())
}

// Cancel closes an OPEN request without submission.
func (s *Service) Cancel(ctx context.Context, id string) (DocRequest, error) {
	if strings.TrimSpace(id) == "" {
		return DocRequest{}, ErrNotFound
	}
	return s.Repo.Cancel(ctx, id, time.Now().UTC())
}

// Resolve redeems a raw token, returning the carrier-facing request view.
// At most one call per token ever succeeds.
func (s *Service) Resolve(ctx context.Context, rawToken string) (ResolvedAccess, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return ResolvedAccess{}, tokens.ErrNotFound
	}
	return s.Repo.ResolveToken(ctx, tokens.Hash(rawToken), time.Now().UTC())
}

// RevokeToken invalidates the request's outstanding token.
func (s *Service) RevokeToken(ctx context.Context, docRequestID string) error {
	if strings.TrimSpace(docRequestID) == "" {
		return tokens.ErrNotFound
	}
	return s.Repo.RevokeToken(ctx, docRequestID)
}

// SweepExpired expires every overdue request. It never fails upward; the
// sweeper loop logs and retries on the next tick.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	return s.Repo.SweepExpired(ctx, time.Now().UTC())
}
