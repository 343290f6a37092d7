package models

import (
	"time"

	"github.com/google/uuid"
)

type UploadStatus string

const (
	UploadStatusPending    UploadStatus = "pending"
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusCompleted  UploadStatus = "completed"
	UploadStatusFailed     UploadStatus = "failed"
)

// Terminal reports whether the status can never change again.
func (s UploadStatus) Terminal() bool {
	return s == UploadStatusCompleted || s == UploadStatusFailed
}

// Upload tracks one user-submitted receipt file and its extraction outcome.
type Upload struct {
	ID            uuid.UUID    `db:"id"`
	UserID        uuid.UUID    `db:"user_id"`
	Filename      string       `db:"filename"`
	Status        UploadStatus `db:"status"`
	TransactionID *uuid.UUID   `db:"transaction_id"`
	ErrorMessage  string       `db:"error_message"`
	CreatedAt     time.Time    `db:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at"`
}
