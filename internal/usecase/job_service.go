package usecase

import (
	"context"
	"fmt"

	"github.com/kumbhanChoksi/Signals-Backend/internal/domain/models"
	domrepo "github.com/kumbhanChoksi/Signals-Backend/internal/domain/repository"
)

type JobService struct {
	jobs    domrepo.JobStore
	signals domrepo.SignalStore
}

func NewJobService(jobs domrepo.JobStore, signals domrepo.SignalStore) *JobService {
	return &JobService{jobs: jobs, signals: signals}
}

// Status returns the client view of a job. A job of another tenant is
// reported as ErrNotFound, exactly like a missing one.
func (s *JobService) Status(ctx context.Context, tenantID, jobID string) (*models.JobStatus, error) {
	job, err := s.jobs.Get(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}

	st := &models.JobStatus{Status: job.Status}
	switch job.Status {
	case models.JobSuccess:
		sig, err := s.signals.GetByJob(ctx, tenantID, jobID)
		if err != nil {
			return nil, fmt.Errorf("signal for job %s: %w", jobID, err)
		}
		st.Signal = sig
	case models.JobFailed:
		st.Error = job.Error
	}
	return st, nil
}
