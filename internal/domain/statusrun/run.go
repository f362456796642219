package statusrun

import "time"

// Transition is one member's status change inside a reconciliation pass.
type Transition struct {
	MemberID     string `json:"memberId"`
	Name         string `json:"name"`
	OldStatus    string `json:"oldStatus"`
	NewStatus    string `json:"newStatus"`
	MissedMonths int    `json:"missedMonths"`
}

// Run is the audit record of one completed reconciliation pass.
// Corresponds to the 'status_runs' table.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Updated    int
	Details    []Transition
}
