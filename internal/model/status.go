package model

import "time"

// Status is the field-level outcome recorded in the change log.
type Status string

// Field outcome taxonomy.
const (
	StatusUpdated         Status = "UPDATED"
	StatusNoActualChanges Status = "NO_ACTUAL_CHANGES"
	StatusForcedUpdate    Status = "FORCED_UPDATE"
	StatusForceFailed     Status = "FORCE_FAILED"
	StatusNoUpdateNeeded  Status = "NO_UPDATE_NEEDED"
	StatusNoChangeNeeded  Status = "NO_CHANGE_NEEDED"
	StatusSkipped         Status = "SKIPPED"
	StatusError           Status = "ERROR"
)

// AllStatuses lists every status in summary display order.
var AllStatuses = []Status{
	StatusUpdated,
	StatusForcedUpdate,
	StatusNoActualChanges,
	StatusForceFailed,
	StatusNoUpdateNeeded,
	StatusNoChangeNeeded,
	StatusSkipped,
	StatusError,
}

// Applied reports whether the status means new content was written.
func (s Status) Applied() bool {
	return s == StatusUpdated || s == StatusForcedUpdate
}

// Verdict is the staleness decision for one section.
type Verdict string

// Staleness verdicts.
const (
	VerdictNeedsUpdate Verdict = "NEEDS_UPDATE"
	VerdictNoUpdate    Verdict = "NO_UPDATE"
	VerdictUnknown     Verdict = "UNKNOWN"
)

// NoDevelopment is the development string used when none was reported.
const NoDevelopment = "None"

// Decision is the result of evaluating one (record, section) pair.
type Decision struct {
	Verdict     Verdict `json:"verdict"`
	Reason      string  `json:"reason"`
	Development string  `json:"development"`
	// Structural is true when the decision came from the size rule rather
	// than an oracle call.
	Structural bool `json:"structural"`
}

// NeedsUpdate reports whether the section should go to the approval gate.
// UNKNOWN is treated as no update.
func (d Decision) NeedsUpdate() bool {
	return d.Verdict == VerdictNeedsUpdate
}

// HasDevelopment reports whether a concrete development string is present.
func (d Decision) HasDevelopment() bool {
	return d.Development != "" && d.Development != NoDevelopment
}

// ChangeLogEntry is one append-only audit record.
type ChangeLogEntry struct {
	ID           string    `json:"id"`
	RunID        string    `json:"run_id"`
	RecordID     string    `json:"record_id"`
	Field        string    `json:"field"`
	Decision     Verdict   `json:"decision"`
	Reason       string    `json:"reason,omitempty"`
	Action       string    `json:"action"`
	Status       Status    `json:"status"`
	BeforeDigest string    `json:"before_digest,omitempty"`
	AfterDigest  string    `json:"after_digest,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Run describes one refresh or feed pass.
type Run struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Counts     map[Status]int `json:"counts,omitempty"`
}

// Run kinds.
const (
	RunKindRefresh = "refresh"
	RunKindFeed    = "feed"
)
