package docrequests

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"docgate-backend/internal/tokens"
)

// PGRepo implements Repo using Postgres. Every mutating method runs inside an
// explicit transaction; row locks (SELECT ... FOR UPDATE) make the
// read-check-write sequences indivisible under concurrent callers.
type PGRepo struct {
	DB *sql.DB
}

const docRequestColumns = `id, broker_org_id, carrier_org_id, verification_id, required_docs, status, expires_at, submitted_at, created_at, updated_at`

// Create inserts the request and its token in one transaction.
func (r *PGRepo) Create(ctx context.Context, req DocRequest, tok tokens.Token) error {
	docsJSON, err := json.Marshal(req.RequiredDocs)
	if err != nil {
		return fmt.Errorf("marshal required docs: %w", err)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var carrierOrg sql.NullString
	if req.CarrierOrgID != "" {
		carrierOrg = sql.NullString{String: req.CarrierOrgID, Valid: true}
	}

	if _, err = tx.ExecContext(ctx, `
INSERT INTO doc_requests (id, broker_org_id, carrier_org_id, verification_id, required_docs, status, expires_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		req.ID, req.BrokerOrgID, carrierOrg, req.VerificationID, docsJSON, req.Status, req.ExpiresAt, req.CreatedAt, req.UpdatedAt,
	); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `
INSERT INTO doc_request_tokens (id, doc_request_id, token_hash, expires_at, is_revoked, created_at)
VALUES ($1, $2, $3, $4, FALSE, $5)`,
		tok.ID, tok.DocRequestID, tok.TokenHash, tok.ExpiresAt, tok.CreatedAt,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID fetches a request by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (DocRequest, error) {
	row := r.DB.QueryRowContext(ctx, `
SELECT `+docRequestColumns+`
FROM doc_requests
WHERE id = $1`, id)
	return scanDocRequest(row)
}

// Submit transitions an OPEN request to SUBMITTED once every required
// doc_type has an upload row. Presence alone satisfies the requirement; the
// upload's decision status is irrelevant here.
func (r *PGRepo) Submit(ctx context.Context, id string, now time.Time) (DocRequest, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return DocRequest{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	req, err := lockDocRequest(ctx, tx, id)
	if err != nil {
		return DocRequest{}, err
	}
	if req.Status != StatusOpen {
		err = ErrInvalidTransition
		return DocRequest{}, err
	}

	present := make(map[string]struct{})
	rows, err := tx.QueryContext(ctx, `
SELECT doc_type FROM uploads WHERE doc_request_id = $1`, id)
	if err != nil {
		return DocRequest{}, err
	}
	for rows.Next() {
		var docType string
		if err = rows.Scan(&docType); err != nil {
			rows.Close()
			return DocRequest{}, err
		}
		present[docType] = struct{}{}
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return DocRequest{}, err
	}

	var missing []string
	for _, docType := range req.RequiredTypes() {
		if _, ok := present[docType]; !ok {
			missing = append(missing, docType)
		}
	}
	if len(missing) > 0 {
		err = &MissingDocumentsError{Missing: missing}
		return DocRequest{}, err
	}

	res, err := tx.ExecContext(ctx, `
UPDATE doc_requests
SET status = $1, submitted_at = $2, updated_at = $2
WHERE id = $3 AND status = $4`,
		StatusSubmitted, now, id, StatusOpen)
	if err != nil {
		return DocRequest{}, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		err = ErrInvalidTransition
		return DocRequest{}, err
	}

	if err = tx.Commit(); err != nil {
		return DocRequest{}, err
	}

	req.Status = StatusSubmitted
	req.SubmittedAt = &now
	req.UpdatedAt = now
	return req, nil
}

// Cancel transitions an OPEN request to CANCELED.
func (r *PGRepo) Cancel(ctx context.Context, id string, now time.Time) (DocRequest, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return DocRequest{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	req, err := lockDocRequest(ctx, tx, id)
	if err != nil {
		return DocRequest{}, err
	}
	if req.Status != StatusOpen {
		err = ErrInvalidTransition
		return DocRequest{}, err
	}

	res, err := tx.ExecContext(ctx, `
UPDATE doc_requests
SET status = $1, updated_at = $2
WHERE id = $3 AND status = $4`,
		StatusCanceled, now, id, StatusOpen)
	if err != nil {
		return DocRequest{}, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		err = ErrInvalidTransition
		return DocRequest{}, err
	}

	if err = tx.Commit(); err != nil {
		return DocRequest{}, err
	}

	req.Status = StatusCanceled
	req.UpdatedAt = now
	return req, nil
}

// ResolveToken redeems a token. The row lock on the token makes the validity
// check and the used_at write indivisible, so exactly one concurrent caller
// ever succeeds.
func (r *PGRepo) ResolveToken(ctx context.Context, tokenHash string, now time.Time) (ResolvedAccess, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return ResolvedAccess{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var tok tokens.Token
	var usedAt sql.NullTime
	row := tx.QueryRowContext(ctx, `
SELECT id, doc_request_id, token_hash, expires_at, used_at, is_revoked, created_at
FROM doc_request_tokens
WHERE token_hash = $1
FOR UPDATE`, tokenHash)
	err = row.Scan(&tok.ID, &tok.DocRequestID, &tok.TokenHash, &tok.ExpiresAt, &usedAt, &tok.IsRevoked, &tok.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = tokens.ErrNotFound
		}
		return ResolvedAccess{}, err
	}
	if usedAt.Valid {
		tok.UsedAt = &usedAt.Time
	}

	switch {
	case tok.IsRevoked:
		err = tokens.ErrRevoked
		return ResolvedAccess{}, err
	case tok.UsedAt != nil:
		err = tokens.ErrAlreadyUsed
		return ResolvedAccess{}, err
	case !now.Before(tok.ExpiresAt):
		err = tokens.ErrExpired
		return ResolvedAccess{}, err
	}

	reqRow := tx.QueryRowContext(ctx, `
SELECT `+docRequestColumns+`
FROM doc_requests
WHERE id = $1`, tok.DocRequestID)
	req, err := scanDocRequest(reqRow)
	if err != nil {
		return ResolvedAccess{}, err
	}
	if req.Status == StatusExpired || req.Status == StatusCanceled {
		err = ErrRequestClosed
		return ResolvedAccess{}, err
	}

	res, err := tx.ExecContext(ctx, `
UPDATE doc_request_tokens
SET used_at = $1
WHERE id = $2 AND used_at IS NULL`, now, tok.ID)
	if err != nil {
		return ResolvedAccess{}, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		err = tokens.ErrAlreadyUsed
		return ResolvedAccess{}, err
	}

	if err = tx.Commit(); err != nil {
		return ResolvedAccess{}, err
	}

	tok.UsedAt = &now
	return ResolvedAccess{Request: req, Token: tok}, nil
}

// RevokeToken revokes every token issued for the request.
func (r *PGRepo) RevokeToken(ctx context.Context, docRequestID string) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE doc_request_tokens
SET is_revoked = TRUE
WHERE doc_request_id = $1 AND NOT is_revoked`, docRequestID)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return tokens.ErrNotFound
	}
	return nil
}

// SweepExpired is a single conditional bulk update; each affected row's
// transition is conditioned on its current status at write time, so the sweep
// interleaves safely with every other operation.
func (r *PGRepo) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
UPDATE doc_requests
SET status = $1, updated_at = $2
WHERE expires_at < $2 AND status NOT IN ($3, $4)`,
		StatusExpired, now, StatusExpired, StatusCanceled)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

func lockDocRequest(ctx context.Context, tx *sql.Tx, id string) (DocRequest, error) {
	row := tx.QueryRowContext(ctx, `
SELECT `+docRequestColumns+`
FROM doc_requests
WHERE id = $1
FOR UPDATE`, id)
	return scanDocRequest(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocRequest(row rowScanner) (DocRequest, error) {
	var req DocRequest
	var carrierOrg sql.NullString
	var docsJSON []byte
	var submittedAt sql.NullTime
	err := row.Scan(
		&req.ID,
		&req.BrokerOrgID,
		&carrierOrg,
		&req.VerificationID,
		&docsJSON,
		&req.Status,
		&req.ExpiresAt,
		&submittedAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DocRequest{}, ErrNotFound
		}
		return DocRequest{}, err
	}
	if carrierOrg.Valid {
		req.CarrierOrgID = carrierOrg.String
	}
	if submittedAt.Valid {
		req.SubmittedAt = &submittedAt.Time
	}
	if len(docsJSON) > 0 {
		if err := json.Unmarshal(docsJSON, &req.RequiredDocs); err != nil {
			return DocRequest{}, fmt.Errorf("unmarshal required docs: %w", err)
		}
	}
	return req, nil
}

var _ Repo = (*PGRepo)(nil)
