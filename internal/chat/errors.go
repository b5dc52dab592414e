package chat

import "errors"

var (
	// ErrNotFound is returned when the conversation's file does not exist
	// or is not owned by the caller. Nothing is persisted or streamed.
	ErrNotFound = errors.New("file not found")

	// ErrCompletion wraps model failures that happen after the user
	// message has been persisted.
	ErrCompletion = errors.New("completion failed")
)
