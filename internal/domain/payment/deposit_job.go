package payment

import (
	"time"

	"github.com/google/uuid"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
)

// JobType identifies what a deposit job does with held funds
type JobType string

const (
	JobRelease        JobType = "release"
	JobWithhold       JobType = "withhold"
	JobPartialRelease JobType = "partial_release"
)

// IsValid checks if the job type is valid
func (t JobType) IsValid() bool {
	switch t {
	case JobRelease, JobWithhold, JobPartialRelease:
		return true
	}
	return false
}

// JobStatus represents the execution state of a deposit job
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// DefaultMaxAttempts caps how often a deposit job is retried
const DefaultMaxAttempts = 3

// DepositJob is a queued release/withhold operation against a captured or
// authorized deposit. Attempts are capped; failed jobs stay visible for
// manual intervention.
type DepositJob struct {
	shared.BaseEntity
	BookingID   uuid.UUID
	PaymentID   *uuid.UUID
	Type        JobType
	Amount      valueobject.Money
	Attempts    int
	MaxAttempts int
	Status      JobStatus
	LastError   string
	StartedAt   *time.Time
}

// NewDepositJob enqueues a deposit operation
func NewDepositJob(bookingID uuid.UUID, paymentID *uuid.UUID, jobType JobType, amount valueobject.Money) (*DepositJob, error) {
	if bookingID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "booking ID is required")
	}
	if !jobType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "invalid deposit job type")
	}
	if amount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "job amount cannot be negative")
	}
	return &DepositJob{
		BaseEntity:  shared.NewBaseEntity(),
		BookingID:   bookingID,
		PaymentID:   paymentID,
		Type:        jobType,
		Amount:      amount,
		Attempts:    0,
		MaxAttempts: DefaultMaxAttempts,
		Status:      JobPending,
	}, nil
}

// Begin marks the job processing and burns one attempt before execution.
// A crash mid-job then leaves an incremented attempt count behind instead
// of a silently retriable job.
func (j *DepositJob) Begin() {
	now := time.Now()
	j.Status = JobProcessing
	j.Attempts++
	j.StartedAt = &now
	j.UpdatedAt = now
}

// Complete marks the job successfully finished
func (j *DepositJob) Complete() {
	j.Status = JobCompleted
	j.LastError = ""
	j.UpdatedAt = time.Now()
}

// Fail records the error. The job goes back to pending while attempts
// remain, and lands on failed once the cap is reached.
func (j *DepositJob) Fail(err error) {
	if err != nil {
		j.LastError = err.Error()
	}
	if j.Attempts >= j.MaxAttempts {
		j.Status = JobFailed
	} else {
		j.Status = JobPending
	}
	j.UpdatedAt = time.Now()
}

// Retriable reports whether the job may still be picked up
func (j *DepositJob) Retriable() bool {
	return j.Status == JobPending && j.Attempts < j.MaxAttempts
}

// StaleSince reports whether a processing job has been stuck past the threshold
func (j *DepositJob) StaleSince(threshold time.Duration) bool {
	if j.Status != JobProcessing || j.StartedAt == nil {
		return false
	}
	return time.Since(*j.StartedAt) > threshold
}

// Requeue returns a stuck processing job to the pending queue.
// The burned attempt is kept so crash loops still hit the cap.
func (j *DepositJob) Requeue() {
	j.Status = JobPending
	j.StartedAt = nil
	j.UpdatedAt = time.Now()
}
