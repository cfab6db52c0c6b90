package tokens

import "errors"

var (
	// ErrNotFound indicates no token matches the presented secret.
	ErrNotFound = errors.New("token not found")

	// ErrRevoked indicates the token was revoked by the broker.
	ErrRevoked = errors.New("token revoked")

	// ErrAlreadyUsed indicates the token was already resolved once.
	ErrAlreadyUsed = errors.New("token already used")

	// ErrExpired indicates the token is past its expiry.
	ErrExpired = errors.New("token expired")
)
