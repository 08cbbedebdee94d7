package jobs

import "context"

// Store persists job records. Implementations must enforce the state machine
// via Update.validate and treat expired records as not found.
type Store interface {
	// Create persists a new job. The job must not already exist.
	Create(ctx context.Context, job *Job) error
	// Get returns the job with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Job, error)
	// Update applies a partial mutation and returns the updated record.
	// Returns ErrNotFound for unknown ids and ErrInvalidTransition for
	// updates that would violate the state machine.
	Update(ctx context.Context, id string, update Update) (*Job, error)
}
