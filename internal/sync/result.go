package sync

import (
	"time"

	"github.com/adlift/adsync/internal/adapter"
	"github.com/adlift/adsync/internal/validation"
)

// Outcome classifies what happened to a single operation.
type Outcome string

const (
	// OutcomePlanned is assigned during dry runs; the operation was
	// ordered and resolved but the adapter was never called.
	OutcomePlanned Outcome = "planned"

	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"

	// OutcomeSkipped means the circuit breaker for the platform was
	// open and the operation was never attempted.
	OutcomeSkipped Outcome = "skipped"

	// OutcomeCompensated marks a rollback delete issued for a create
	// that succeeded before a transactional batch aborted.
	OutcomeCompensated Outcome = "compensated"
)

// ExecutedOperation pairs an operation with its outcome.
type ExecutedOperation struct {
	Operation Operation
	Outcome   Outcome
	// PlatformID is the identifier minted by the platform for
	// successful creates.
	PlatformID string
	// ParentFailed marks a create that was never attempted because
	// its parent's create failed earlier in the same batch.
	ParentFailed bool
	Err          *adapter.Error
	Duration     time.Duration
}

// ExecResult is the outcome of executing one ordered operation batch.
type ExecResult struct {
	Executed []ExecutedOperation
	// RolledBack is true when a transactional batch aborted and its
	// compensation deletes were issued.
	RolledBack bool
	Duration   time.Duration
}

// Success reports whether every attempted operation succeeded. Dry
// runs and empty batches count as successful.
func (r *ExecResult) Success() bool {
	if r.RolledBack {
		return false
	}
	for _, e := range r.Executed {
		if e.Outcome == OutcomeFailed || e.Outcome == OutcomeSkipped {
			return false
		}
	}
	return true
}

func (r *ExecResult) count(o Outcome) int {
	n := 0
	for _, e := range r.Executed {
		if e.Outcome == o {
			n++
		}
	}
	return n
}

func (r *ExecResult) Succeeded() int { return r.count(OutcomeSuccess) }
func (r *ExecResult) Failed() int    { return r.count(OutcomeFailed) }
func (r *ExecResult) Skipped() int   { return r.count(OutcomeSkipped) }
func (r *ExecResult) Planned() int   { return r.count(OutcomePlanned) }

// CampaignError attributes a failed operation to the campaign whose
// subtree it belongs to.
type CampaignError struct {
	CampaignID string
	Operation  Operation
	Err        *adapter.Error
}

func (e CampaignError) Error() string {
	msg := "operation failed"
	if e.Err != nil {
		msg = e.Err.Message
	}
	return e.Operation.String() + ": " + msg
}

// SyncResult is the campaign-granularity summary returned by Sync.
type SyncResult struct {
	Success         bool
	SyncedCampaigns int
	FailedCampaigns int
	Errors          []CampaignError

	// Validation is set, and no operations run, when the set fails
	// pre-sync validation.
	Validation *validation.Result

	// Exec carries per-operation detail for reporting.
	Exec *ExecResult
}
