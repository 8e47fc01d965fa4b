package decision

import (
	"image"
	"strings"
	"time"
)

// Status represents the lifecycle of a decision record.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDeclined Status = "declined"
	StatusExecuted Status = "executed"
)

var allStatuses = []Status{
	StatusPending,
	StatusApproved,
	StatusDeclined,
	StatusExecuted,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Decision is an operator verdict on a pending request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDecline Decision = "decline"
)

// ParseDecision converts a string into a known Decision.
func ParseDecision(value string) (Decision, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "approve":
		return DecisionApprove, true
	case "decline":
		return DecisionDecline, true
	default:
		return "", false
	}
}

// Status returns the record status a decision transitions into.
func (d Decision) Status() Status {
	if d == DecisionApprove {
		return StatusApproved
	}
	return StatusDeclined
}

// Record is the persistent unit of per-identity state.
type Record struct {
	ID          int64
	IdentityKey string
	DisplayName string
	Status      Status
	FirstSeenAt time.Time
	DecidedAt   *time.Time
	ExecutedAt  *time.Time
	Notified    bool
	Archived    bool
	// CardBounds is the last on-screen location of the card, kept to help
	// re-locate controls on a later scan. Nil when never observed.
	CardBounds *image.Rectangle
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Actionable reports whether the record is decided but not yet executed.
func (r Record) Actionable() bool {
	return r.Status == StatusApproved || r.Status == StatusDeclined
}

// Decision returns the operator verdict implied by the record status.
// Only meaningful for actionable records.
func (r Record) Decision() Decision {
	if r.Status == StatusDeclined {
		return DecisionDecline
	}
	return DecisionApprove
}

// HealthSummary aggregates record counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Actionable int
	Executed   int
}

// DatabaseHealth captures diagnostic information about the decision database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	IntegrityCheck   bool
	TotalRecords     int
	Error            string
}
