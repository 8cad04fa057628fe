package models

import "time"

type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// AuditJob tracks one asynchronously submitted batch. It is written only by
// the goroutine running the batch and read by pollers.
type AuditJob struct {
	ID             string       `json:"job_id"`
	Status         JobStatus    `json:"status"`
	Progress       float64      `json:"progress"`
	CurrentFile    string       `json:"current_file,omitempty"`
	ProcessedFiles int          `json:"processed_files"`
	TotalFiles     int          `json:"total_files"`
	Result         *BatchResult `json:"result,omitempty"`
	ErrorMessage   string       `json:"error_message,omitempty"`
	StartedAt      time.Time    `json:"started_at"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
	// ElapsedTime is filled in on snapshots handed to pollers.
	ElapsedTime    float64      `json:"elapsed_time"`
}

// IsDone reports whether the job reached a terminal state.
func (j *AuditJob) IsDone() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Elapsed is live while processing and frozen once the job is done.
func (j *AuditJob) Elapsed(now time.Time) time.Duration {
	if j.CompletedAt != nil {
		return j.CompletedAt.Sub(j.StartedAt)
	}
	return now.Sub(j.StartedAt)
}
