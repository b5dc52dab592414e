// Package file persists uploaded file records and their ingestion status.
package file

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the ingestion state of an uploaded file.
type Status string

// Upload status values. A file starts QUEUED, moves to PROCESSING when
// ingestion is triggered, and reaches exactly one terminal state.
const (
	StatusQueued     Status = "QUEUED"
	StatusProcessing Status = "PROCESSING"
	StatusSuccess    Status = "SUCCESS"
	StatusFailed     Status = "FAILED"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

var (
	// ErrNotFound indicates the file does not exist or is not owned by the
	// requesting user.
	ErrNotFound = errors.New("file not found")

	// ErrTerminalStatus indicates a status write was rejected because the
	// file already reached SUCCESS or FAILED.
	ErrTerminalStatus = errors.New("file status already terminal")

	// ErrDuplicateKey indicates a file with the same storage key already
	// exists.
	ErrDuplicateKey = errors.New("file key already exists")
)

// File is an uploaded document record.
type File struct {
	ID        uuid.UUID
	Key       string
	Name      string
	URL       string
	Status    Status
	UserID    string
	CreatedAt time.Time
}
