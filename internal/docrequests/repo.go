package docrequests

import (
	"context"
	"time"

	"docgate-backend/internal/tokens"
)

// ResolvedAccess is the carrier-facing view returned by a successful token
// resolution: the request plus the redeemed token's metadata.
type ResolvedAccess struct {
	Request DocRequest
	Token   tokens.Token
}

// Repo defines persistence operations for document requests and their access
// tokens. Each mutating method is a single atomic unit of work; reads that
// inform a decision and the subsequent write are indivisible from the
// perspective of concurrent callers.
type Repo interface {
	// Create persists the request and its token as one atomic unit.
	Create(ctx context.Context, req DocRequest, tok tokens.Token) error

	GetByID(ctx context.Context, id string) (DocRequest, error)

	// Submit moves an OPEN request to SUBMITTED after verifying every
	// required doc_type has an upload row. Returns ErrInvalidTransition when
	// the request is not OPEN and *MissingDocumentsError when required
	// documents are absent.
	Submit(ctx context.Context, id string, now time.Time) (DocRequest, error)

	// Cancel moves an OPEN request to CANCELED.
	Cancel(ctx context.Context, id string, now time.Time) (DocRequest, error)

	// ResolveToken redeems a token by hash. Exactly one concurrent caller
	// wins; the token's used_at is set in the same atomic step as the
	// validity check.
	ResolveToken(ctx context.Context, tokenHash string, now time.Time) (ResolvedAccess, error)

	// RevokeToken flips is_revoked on the request's token, closing the
	// carrier's link without touching the request itself.
	RevokeToken(ctx context.Context, docRequestID string) error

	// SweepExpired moves every overdue non-terminal request to EXPIRED and
	// returns the number of rows affected. Idempotent and safe to run
	// concurrently with any other operation.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}
