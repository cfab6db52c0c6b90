package docrequests

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the referenced document request is absent.
	ErrNotFound = errors.New("doc request not found")

	// ErrInvalidInput indicates validation or bad input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition indicates a status change outside the allowed table.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrRequestClosed indicates the request is EXPIRED or CANCELED and can no
	// longer be acted on through a token.
	ErrRequestClosed = errors.New("doc request closed")
)

// MissingDocumentsError reports a submit attempt with required document
// types that have no upload yet.
type MissingDocumentsError struct {
	Missing []string
}

func (e *MissingDocumentsError) Error() string {
	return fmt.Sprintf("missing required documents: %s", strings.Join(e.Missing, ", "))
}
