package domain

import "time"

type JobType string

const (
	JobTypeURLImport JobType = "url_import"
	JobTypeGenerate  JobType = "generate"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is a background import work item: a remote URL to fetch or a prompt
// to generate from. Source holds the URL or prompt.
type Job struct {
	ID        string    `json:"id" db:"id"`
	Type      JobType   `json:"type" db:"type"`
	Status    JobStatus `json:"status" db:"status"`
	Source    string    `json:"source" db:"source"`
	TrackID   *string   `json:"track_id,omitempty" db:"track_id"`
	Error     *string   `json:"error,omitempty" db:"error"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
