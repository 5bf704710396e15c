package reconcile

import "time"

// Outcome classifies what happened to one identity during a run.
type Outcome string

const (
	// OutcomeLinked means the link write was applied by this run.
	OutcomeLinked Outcome = "linked"
	// OutcomeAlreadyLinked means the compare-and-set found the member or
	// identity linked concurrently; nothing changed.
	OutcomeAlreadyLinked Outcome = "already_linked"
	// OutcomeAmbiguous means two or more members tied at the top score; no
	// link was written and the identity needs manual review.
	OutcomeAmbiguous Outcome = "unresolved_ambiguous"
	// OutcomeBelowThreshold means no candidate reached the acceptance score.
	OutcomeBelowThreshold Outcome = "below_threshold"
	// OutcomeError means the link write failed after retries and was skipped.
	OutcomeError Outcome = "error"
)

// Detail is the per-identity outcome in a reconciliation report.
type Detail struct {
	IdentityID    string  `json:"identity_id"`
	Username      string  `json:"username"`
	MatchedHandle string  `json:"matched_handle,omitempty"`
	Score         int     `json:"score"`
	Method        string  `json:"method,omitempty"`
	Outcome       Outcome `json:"outcome"`
}

// Report summarizes one reconciliation run.
type Report struct {
	Total      int       `json:"total_considered"`
	Linked     int       `json:"linked"`
	Details    []Detail  `json:"details"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
