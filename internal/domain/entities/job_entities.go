package entities

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a statement processing job
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// IsTerminal reports whether the status admits no further transitions.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is one uploaded statement and its processing state. Jobs are created
// in PENDING by the upload flow; after that only the worker pool writes
// status transitions.
type Job struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	UserID       uuid.UUID  `json:"user_id" db:"user_id"`
	DocumentKey  string     `json:"document_key" db:"document_key"`
	FileName     string     `json:"file_name" db:"file_name"`
	FileSize     int64      `json:"file_size" db:"file_size"`
	Status       JobStatus  `json:"status" db:"status"`
	ProcessedBy  *string    `json:"processed_by,omitempty" db:"processed_by"`
	ErrorMessage *string    `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// NewJob creates a pending job for an uploaded document.
func NewJob(userID uuid.UUID, documentKey, fileName string, fileSize int64) *Job {
	now := time.Now()
	return &Job{
		ID:          uuid.New(),
		UserID:      userID,
		DocumentKey: documentKey,
		FileName:    fileName,
		FileSize:    fileSize,
		Status:      JobStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// JobMessage is the queue payload that hands a job to the worker pool.
type JobMessage struct {
	JobID       uuid.UUID `json:"jobId"`
	UserID      uuid.UUID `json:"userId"`
	DocumentKey string    `json:"documentKey"`
	FileName    string    `json:"fileName"`
	Timestamp   time.Time `json:"timestamp"`
}

// JobStatusSnapshot is the cacheable view of a job's progress. The owner
// travels with the snapshot so cached reads can enforce ownership without
// touching the database.
type JobStatusSnapshot struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"userId"`
	Status       JobStatus  `json:"status"`
	FileName     string     `json:"fileName"`
	CreatedAt    time.Time  `json:"createdAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	ErrorMessage *string    `json:"errorMessage,omitempty"`
}

// Snapshot returns the cacheable view of the job.
func (j *Job) Snapshot() *JobStatusSnapshot {
	return &JobStatusSnapshot{
		ID:           j.ID,
		UserID:       j.UserID,
		Status:       j.Status,
		FileName:     j.FileName,
		CreatedAt:    j.CreatedAt,
		CompletedAt:  j.CompletedAt,
		ErrorMessage: j.ErrorMessage,
	}
}
