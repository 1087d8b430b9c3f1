package agencykit

import "time"

// AuditLogFilter provides options for filtering audit log queries.
type AuditLogFilter struct {
	// Filter by acting user
	ActorID string

	// Filter by the actor's role at the time
	Role Role

	// Filter by resource kind and, optionally, a single record
	Kind     ResourceKind
	RecordID string

	// Filter by attempted action
	Action Action

	// Filter by outcome ("allowed", "denied" or "hidden")
	Outcome AuditOutcome

	// Filter by time range
	Since time.Time
	Until time.Time

	// Pagination
	Limit  int
	Offset int
}

// DefaultAuditLimit applies when a filter has no limit.
const DefaultAuditLimit = 100

// NewAuditLogFilter creates a new AuditLogFilter with default values.
func NewAuditLogFilter() AuditLogFilter {
	return AuditLogFilter{
		Limit: DefaultAuditLimit,
	}
}

// WithActor sets the actor ID filter.
func (f AuditLogFilter) WithActor(actorID string) AuditLogFilter {
	f.ActorID = actorID
	return f
}

// WithRole sets the role filter.
func (f AuditLogFilter) WithRole(role Role) AuditLogFilter {
	f.Role = role
	return f
}

// WithRecord limits results to one record.
func (f AuditLogFilter) WithRecord(kind ResourceKind, id string) AuditLogFilter {
	f.Kind = kind
	f.RecordID = id
	return f
}

// WithKind sets only the resource kind filter.
func (f AuditLogFilter) WithKind(kind ResourceKind) AuditLogFilter {
	f.Kind = kind
	return f
}

// WithAction sets the action filter.
func (f AuditLogFilter) WithAction(action Action) AuditLogFilter {
	f.Action = action
	return f
}

// WithOutcome sets the outcome filter.
func (f AuditLogFilter) WithOutcome(outcome AuditOutcome) AuditLogFilter {
	f.Outcome = outcome
	return f
}

// WithTimeRange sets the time range filter.
func (f AuditLogFilter) WithTimeRange(since, until time.Time) AuditLogFilter {
	f.Since = since
	f.Until = until
	return f
}

// WithSince sets the start time filter.
func (f AuditLogFilter) WithSince(since time.Time) AuditLogFilter {
	f.Since = since
	return f
}

// WithUntil sets the end time filter.
func (f AuditLogFilter) WithUntil(until time.Time) AuditLogFilter {
	f.Until = until
	return f
}

// WithPagination sets both limit and offset.
func (f AuditLogFilter) WithPagination(limit, offset int) AuditLogFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}

// Matches reports whether an entry passes every set field of the filter.
// Pagination is not considered.
func (f AuditLogFilter) Matches(e *AccessAuditLog) bool {
	switch {
	case f.ActorID != "" && e.ActorID != f.ActorID:
		return false
	case f.Role != "" && e.ActorRole != string(f.Role):
		return false
	case f.Kind != "" && e.Kind != string(f.Kind):
		return false
	case f.RecordID != "" && e.RecordID != f.RecordID:
		return false
	case f.Action != "" && e.Action != string(f.Action):
		return false
	case f.Outcome != "" && e.Outcome != string(f.Outcome):
		return false
	case !f.Since.IsZero() && e.Timestamp.Before(f.Since):
		return false
	case !f.Until.IsZero() && e.Timestamp.After(f.Until):
		return false
	}
	return true
}

func (f AuditLogFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultAuditLimit
	}
	return f.Limit
}
