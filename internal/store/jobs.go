package store

import (
	"database/sql"
	"time"

	"waveshelf/internal/domain"
)

func (db *DB) CreateJob(job *domain.Job) error {
	query := `INSERT INTO jobs (id, type, status, source, track_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := db.Exec(query, job.ID, job.Type, job.Status, job.Source, job.TrackID, job.CreatedAt, job.UpdatedAt)
	return err
}

// GetJob returns nil, nil when the id is unknown.
func (db *DB) GetJob(id string) (*domain.Job, error) {
	var job domain.Job
	err := db.Get(&job, `SELECT * FROM jobs WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (db *DB) UpdateJobStatus(id string, status domain.JobStatus) error {
	_, err := db.Exec(`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`, status, time.Now(), id)
	return err
}

// CompleteJob marks the job completed and records the imported track.
func (db *DB) CompleteJob(id, trackID string) error {
	_, err := db.Exec(`UPDATE jobs SET status = ?, track_id = ?, updated_at = ? WHERE id = ?`,
		domain.JobStatusCompleted, trackID, time.Now(), id)
	return err
}

func (db *DB) FailJob(id, errorMsg string) error {
	_, err := db.Exec(`UPDATE jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		domain.JobStatusFailed, errorMsg, time.Now(), id)
	return err
}

func (db *DB) ListJobs(limit int) ([]*domain.Job, error) {
	var jobs []*domain.Job
	err := db.Select(&jobs, `SELECT * FROM jobs ORDER BY created_at DESC LIMIT ?`, limit)
	return jobs, err
}

func (db *DB) ListQueuedJobs() ([]*domain.Job, error) {
	var jobs []*domain.Job
	err := db.Select(&jobs, `SELECT * FROM jobs WHERE status = ? ORDER BY created_at ASC`, domain.JobStatusQueued)
	return jobs, err
}

func (db *DB) CountRunningJobs() (int, error) {
	var n int
	err := db.Get(&n, `SELECT COUNT(*) FROM jobs WHERE status = ?`, domain.JobStatusRunning)
	return n, err
}

// GetActiveJobBySource dedups repeated submissions of the same URL/prompt.
func (db *DB) GetActiveJobBySource(source string, jobType domain.JobType) (*domain.Job, error) {
	var job domain.Job
	err := db.Get(&job, `SELECT * FROM jobs
		WHERE source = ? AND type = ? AND status IN ('queued', 'running')
		LIMIT 1`, source, jobType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ResetStuckJobs requeues jobs left running by a previous process.
func (db *DB) ResetStuckJobs() error {
	_, err := db.Exec(`UPDATE jobs SET status = ?, updated_at = ? WHERE status = ?`,
		domain.JobStatusQueued, time.Now(), domain.JobStatusRunning)
	return err
}
