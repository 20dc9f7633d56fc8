package model

import "errors"

// ErrorKind classifies failures so the transport can map them to responses.
type ErrorKind string

// Error kinds.
const (
	KindNotFound         ErrorKind = "not_found"
	KindForbidden        ErrorKind = "forbidden"
	KindInvalidOperation ErrorKind = "invalid_operation"
	KindConflict         ErrorKind = "conflict"
	KindUnauthenticated  ErrorKind = "unauthenticated"
	KindStorageFailure   ErrorKind = "storage_failure"
)

// Error is a classified failure with a message safe to show to the caller.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

// NewError returns a classified error.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

var (
	ErrItemUnavailable       = NewError(KindNotFound, "item not found or already claimed")
	ErrItemNotFound          = NewError(KindNotFound, "item not found")
	ErrClaimNotFound         = NewError(KindNotFound, "claim not found")
	ErrUserNotFound          = NewError(KindNotFound, "user not found")
	ErrAttachmentNotFound    = NewError(KindNotFound, "attachment not found")
	ErrOwnClaim              = NewError(KindInvalidOperation, "cannot claim own item")
	ErrProofRequired         = NewError(KindInvalidOperation, "proof description required")
	ErrTooManyProofImages    = NewError(KindInvalidOperation, "too many proof images")
	ErrInvalidTransition     = NewError(KindInvalidOperation, "invalid status transition")
	ErrDuplicatePendingClaim = NewError(KindConflict, "duplicate pending claim")
	ErrItemNotApprovable     = NewError(KindConflict, "item is no longer open for approval")
	ErrClaimNotPending       = NewError(KindConflict, "claim is no longer pending")
	ErrItemNotClaimed        = NewError(KindConflict, "item has no approved claim")
	ErrEmailTaken            = NewError(KindConflict, "email already registered")
	ErrNotItemOwner          = NewError(KindForbidden, "not authorized for this item")
	ErrForbiddenAttachment   = NewError(KindForbidden, "not authorized to view this attachment")
	ErrInvalidCredentials    = NewError(KindUnauthenticated, "invalid credentials")
)

// KindOf returns the kind of err. Unclassified errors are storage failures.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorageFailure
}
