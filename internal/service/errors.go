package service

import "errors"

// Sentinel errors returned by the service layer. Handlers map them onto the
// HTTP taxonomy; anything else becomes a generic 500.
var (
	ErrUserAlreadyExists  = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailInUse         = errors.New("email is already in use")
	ErrInvalidEmail       = errors.New("invalid email address")

	// ErrConversationNotFound covers both a missing conversation and one
	// owned by another user. The two cases are deliberately
	// indistinguishable so existence never leaks to non-owners.
	ErrConversationNotFound = errors.New("conversation not found")

	ErrEmptyTitle     = errors.New("title is required")
	ErrEmptyMessage   = errors.New("message content is required")
	ErrMessageTooLong = errors.New("message is too long (max 10,000 characters)")
)
