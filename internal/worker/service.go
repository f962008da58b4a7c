package worker

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"waveshelf/internal/constants"
	"waveshelf/internal/domain"
	"waveshelf/internal/logger"
	"waveshelf/internal/store"
)

// JobService enqueues and inspects import jobs; the Worker consumes them.
type JobService struct {
	store *store.DB
	log   *logger.Logger
}

func NewJobService(db *store.DB, log *logger.Logger) *JobService {
	return &JobService{store: db, log: log.WithComponent("jobs")}
}

// Enqueue creates a job unless an identical one is already queued or
// running, in which case the existing job is returned.
func (s *JobService) Enqueue(source string, jobType domain.JobType) (*domain.Job, error) {
	if source == "" {
		return nil, fmt.Errorf("empty job source")
	}

	existing, err := s.store.GetActiveJobBySource(source, jobType)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing job: %w", err)
	}
	if existing != nil {
		s.log.Info("Job already active", "job_id", existing.ID, "type", jobType)
		return existing, nil
	}

	now := time.Now()
	job := &domain.Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    domain.JobStatusQueued,
		Source:    source,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateJob(job); err != nil {
		return nil, err
	}

	s.log.Info("Job enqueued", "job_id", job.ID, "type", jobType)
	return job, nil
}

func (s *JobService) Get(id string) (*domain.Job, error) {
	return s.store.GetJob(id)
}

func (s *JobService) List() ([]*domain.Job, error) {
	return s.store.ListJobs(constants.MaxJobsListed)
}
