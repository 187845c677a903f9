package vault

import "github.com/kimhsiao/tgvault/internal/models"

// JobState is the outcome of applying one download attempt to a job.
type JobState string

const (
	// StateQueued keeps the job in the pending queue for another attempt.
	StateQueued JobState = "queued"
	// StateCompleted removes the job; a ledger entry replaces it.
	StateCompleted JobState = "completed"
	// StateAbandoned removes the job after exhausting its retries. No
	// replacement record is written.
	StateAbandoned JobState = "abandoned"
)

// AttemptOutcome is the result of one fetch/download/persist attempt.
type AttemptOutcome struct {
	Success bool
	Err     error
}

// Transition applies one attempt outcome to a job and returns the job as it
// should be persisted together with its next state. It is a pure function;
// the worker owns all side effects.
func Transition(job models.Job, outcome AttemptOutcome) (models.Job, JobState) {
	if outcome.Success {
		return job, StateCompleted
	}
	job.RetryCount++
	if job.RetryCount >= job.MaxRetries {
		return job, StateAbandoned
	}
	return job, StateQueued
}
