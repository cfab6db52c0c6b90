package uploads

import "errors"

var (
	// ErrNotFound indicates the referenced upload or its request is absent.
	ErrNotFound = errors.New("upload not found")

	// ErrRequestNotFound indicates the owning doc request is absent.
	ErrRequestNotFound = errors.New("doc request not found")

	// ErrInvalidInput indicates validation or bad input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRequestClosed indicates the owning request no longer accepts uploads.
	ErrRequestClosed = errors.New("doc request closed")

	// ErrReplaceDenied indicates the upload was already decided and cannot be
	// overwritten.
	ErrReplaceDenied = errors.New("upload already decided")

	// ErrInvalidTransition indicates a status change outside the allowed table.
	ErrInvalidTransition = errors.New("invalid status transition")
)
