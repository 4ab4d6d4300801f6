package checkpointer

import (
	"sort"
	"time"
)

// Operation names.
const (
	OperationSave  = "save"
	OperationLoad  = "load"
	OperationReset = "reset"
)

// Outcome summarizes how an operation ended.
type Outcome string

// Outcomes.
const (
	// OutcomeSaved means a checkpoint was written.
	OutcomeSaved Outcome = "saved"
	// OutcomeLoaded means a checkpoint was read and its fragments applied.
	OutcomeLoaded Outcome = "loaded"
	// OutcomeColdStart means no checkpoint existed and state was reset.
	OutcomeColdStart Outcome = "cold-start"
	// OutcomeRecovered means the checkpoint was unreadable and state was reset.
	OutcomeRecovered Outcome = "recovered"
	// OutcomeReset means Reset was called directly.
	OutcomeReset Outcome = "reset"
	// OutcomeFailed means encoding, encryption, or storage failed.
	OutcomeFailed Outcome = "failed"
)

// Report describes what one Save, Load, or Reset did.
type Report struct {
	// Op is the operation name ("save", "load", "reset").
	Op string

	// Outcome is how the operation ended.
	Outcome Outcome

	// EnvelopeID identifies the checkpoint written or read, if any.
	EnvelopeID string

	// Kinds lists kinds whose callback succeeded, in call order.
	Kinds []string

	// Absent lists kinds whose produce callback returned no data.
	Absent []string

	// Failed maps each kind whose callback failed to its error.
	Failed map[string]error

	// Skipped lists kinds found in the checkpoint with no registration.
	Skipped []string

	// Bytes is the stored size of the checkpoint written or read.
	Bytes int

	// Cause is the error that forced a recovery or failure.
	Cause error

	// Duration is the wall time of the operation.
	Duration time.Duration
}

func newReport(op string) *Report {
	return &Report{Op: op, Failed: make(map[string]error)}
}

func (r *Report) fail(kind string, err error) {
	r.Failed[kind] = err
}

// OK reports whether the operation succeeded with no callback failures.
func (r *Report) OK() bool {
	return r.Outcome != OutcomeFailed && len(r.Failed) == 0
}

// FailedKinds returns the kinds in Failed, sorted.
func (r *Report) FailedKinds() []string {
	kinds := make([]string, 0, len(r.Failed))
	for k := range r.Failed {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Result is delivered by SaveAsync and LoadAsync.
type Result struct {
	Report *Report
	Err    error
}
