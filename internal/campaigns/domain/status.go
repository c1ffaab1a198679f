// Package domain provides core business rules for the campaigns bounded context.
package domain

// Status is the lifecycle state of a campaign.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// terminalStatuses are statuses where no further processing may occur.
// failed is re-enterable via an explicit restart dispatch only.
var terminalStatuses = map[Status]bool{
	StatusCompleted: true,
	StatusFailed:    true,
	StatusCancelled: true,
}

// validTransitions describes the campaign state machine:
//
//	draft --dispatch--> queued --claim--> running --success--> completed
//	queued --dispatch error / retries exhausted--> failed
//	running --worker error / monitor timeout--> failed
//	failed --dispatch (restart)--> queued
//	draft|queued --cancel--> cancelled
var validTransitions = map[Status][]Status{
	StatusDraft:   {StatusQueued, StatusCancelled},
	StatusQueued:  {StatusRunning, StatusFailed, StatusCancelled},
	StatusRunning: {StatusCompleted, StatusFailed},
	StatusFailed:  {StatusQueued},
}

// IsTerminal reports whether the status is terminal. Terminal campaigns must
// carry a completed_at timestamp; non-terminal ones must not.
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// CanTransition reports whether moving from s to next is a legal step of the
// campaign state machine.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsDispatchable reports whether a campaign in this status may be handed to
// the task queue. Only fresh drafts and failed campaigns (restart) qualify.
func (s Status) IsDispatchable() bool {
	return s == StatusDraft || s == StatusFailed
}

// IsCancellable reports whether an operator cancel is allowed. A running
// campaign cannot be cancelled mid-run; the monitor converts overdue runs to
// failed instead.
func (s Status) IsCancellable() bool {
	return s == StatusDraft || s == StatusQueued
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusQueued, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// SearchType selects the lead search strategy for a campaign.
type SearchType string

const (
	// SearchTypePlaces queries the places provider directly with the
	// campaign sector and location.
	SearchTypePlaces SearchType = "places"
	// SearchTypePrompt expands the campaign prompt into search terms with
	// the AI query planner before querying the places provider.
	SearchTypePrompt SearchType = "prompt"
)

// Valid reports whether t is a known search type.
func (t SearchType) Valid() bool {
	return t == SearchTypePlaces || t == SearchTypePrompt
}
