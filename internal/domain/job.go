package domain

import (
	"fmt"
	"time"
)

// IndexJobStatus represents the status of an index job
type IndexJobStatus string

const (
	IndexJobStatusPending    IndexJobStatus = "pending"
	IndexJobStatusProcessing IndexJobStatus = "processing"
	IndexJobStatusCompleted  IndexJobStatus = "completed"
	IndexJobStatusFailed     IndexJobStatus = "failed"
)

// IndexJobAction selects what the worker does with the document's vectors.
type IndexJobAction string

const (
	IndexJobActionIndex  IndexJobAction = "index"
	IndexJobActionDelete IndexJobAction = "delete"
)

// IndexJob represents an async vector-indexing job for one document.
type IndexJob struct {
	ID          string
	DocumentID  int64
	UserID      int64
	Action      IndexJobAction
	Status      IndexJobStatus
	Retries     int32
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// ValidateIndexJob validates an IndexJob instance
func ValidateIndexJob(j *IndexJob) error {
	if j == nil {
		return fmt.Errorf("index job cannot be nil")
	}
	if j.ID == "" {
		return fmt.Errorf("index job ID is required")
	}
	if j.DocumentID <= 0 {
		return fmt.Errorf("index job document ID is required")
	}
	switch j.Action {
	case IndexJobActionIndex, IndexJobActionDelete:
	default:
		return fmt.Errorf("invalid index job action: %s", j.Action)
	}
	switch j.Status {
	case IndexJobStatusPending, IndexJobStatusProcessing, IndexJobStatusCompleted, IndexJobStatusFailed:
	default:
		return fmt.Errorf("invalid index job status: %s", j.Status)
	}
	return nil
}
