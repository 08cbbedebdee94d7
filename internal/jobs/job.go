// Package jobs provides the research job record, its status state machine,
// and the stores that persist it.
package jobs

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a research job.
type Status string

// Job lifecycle states. A job only ever moves forward:
// pending -> processing -> completed | failed.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Store errors shared by all implementations.
var (
	// ErrNotFound is returned when a job id does not exist (or has expired).
	ErrNotFound = errors.New("job not found")
	// ErrInvalidTransition is returned when an update would move a job
	// backwards through the state machine or out of a terminal state.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// ValidateTransition checks that moving from one status to another follows
// the state machine. Setting the same status again is allowed so that
// message-only updates can carry the current status.
func ValidateTransition(from, to Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if from == to {
		return nil
	}
	switch from {
	case StatusPending:
		if to == StatusProcessing {
			return nil
		}
	case StatusProcessing:
		if to == StatusCompleted || to == StatusFailed {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// Job is a single research request and its lifecycle record.
type Job struct {
	ID           string    `json:"job_id"`
	Query        string    `json:"query"`
	DeepResearch bool      `json:"deep_research"`
	Status       Status    `json:"status"`
	Message      string    `json:"message,omitempty"`
	Result       string    `json:"result,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	ExpiresAt    time.Time `json:"-"`
}

// New creates a pending job for a query. The id is generated here and never
// changes; retention controls when the record becomes eligible for purging.
func New(query string, deepResearch bool, retention time.Duration) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:           "job_" + uuid.NewString(),
		Query:        query,
		DeepResearch: deepResearch,
		Status:       StatusPending,
		Message:      "Job created, waiting to start processing",
		CreatedAt:    now,
		UpdatedAt:    now,
		ExpiresAt:    now.Add(retention),
	}
}

// Update is a partial mutation of a job record. Nil fields are left
// untouched; UpdatedAt is always refreshed.
type Update struct {
	Status  *Status
	Message *string
	Result  *string
	Error   *string
}

// StatusOf returns a pointer suitable for Update.Status.
func StatusOf(s Status) *Status { return &s }

// StringOf returns a pointer suitable for Update string fields.
func StringOf(s string) *string { return &s }

// validate checks the update against the job's current state: the status
// transition must be legal, result may only be set on completion, error may
// only be set on failure, and the two are mutually exclusive.
func (u Update) validate(current *Job) error {
	next := current.Status
	if u.Status != nil {
		if err := ValidateTransition(current.Status, *u.Status); err != nil {
			return err
		}
		next = *u.Status
	}
	if u.Result != nil && next != StatusCompleted {
		return fmt.Errorf("%w: result set while status is %s", ErrInvalidTransition, next)
	}
	if u.Error != nil && next != StatusFailed {
		return fmt.Errorf("%w: error set while status is %s", ErrInvalidTransition, next)
	}
	if u.Result != nil && u.Error != nil {
		return fmt.Errorf("%w: result and error are mutually exclusive", ErrInvalidTransition)
	}
	return nil
}

// apply mutates the job in place after validation.
func (u Update) apply(job *Job, now time.Time) {
	if u.Status != nil {
		job.Status = *u.Status
	}
	if u.Message != nil {
		job.Message = *u.Message
	}
	if u.Result != nil {
		job.Result = *u.Result
	}
	if u.Error != nil {
		job.Error = *u.Error
	}
	job.UpdatedAt = now
}
