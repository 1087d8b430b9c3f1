package agencykit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestAuditLogFilterBuilders tests the chainable setters
func TestAuditLogFilterBuilders(t *testing.T) {
	since := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	until := since.Add(24 * time.Hour)

	f := NewAuditLogFilter().
		WithActor("user-4").
		WithRole(RoleEmployee).
		WithRecord(KindTask, "task-1").
		WithAction(ActionUpdate).
		WithOutcome(OutcomeHidden).
		WithTimeRange(since, until).
		WithPagination(10, 20)

	assert.Equal(t, "user-4", f.ActorID)
	assert.Equal(t, RoleEmployee, f.Role)
	assert.Equal(t, KindTask, f.Kind)
	assert.Equal(t, "task-1", f.RecordID)
	assert.Equal(t, ActionUpdate, f.Action)
	assert.Equal(t, OutcomeHidden, f.Outcome)
	assert.Equal(t, since, f.Since)
	assert.Equal(t, until, f.Until)
	assert.Equal(t, 10, f.Limit)
	assert.Equal(t, 20, f.Offset)

	base := NewAuditLogFilter()
	_ = base.WithActor("someone")
	assert.Empty(t, base.ActorID, "setters return copies")
	assert.Equal(t, DefaultAuditLimit, base.Limit)
}

// TestAuditLogFilterMatches tests entry matching
func TestAuditLogFilterMatches(t *testing.T) {
	at := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	entry := &AccessAuditLog{
		Timestamp: at,
		ActorID:   "user-4",
		ActorRole: "Employee",
		Action:    "update",
		Kind:      "Task",
		RecordID:  "task-1",
		Outcome:   "hidden",
	}

	tests := []struct {
		name   string
		filter AuditLogFilter
		want   bool
	}{
		{"empty", NewAuditLogFilter(), true},
		{"actor", NewAuditLogFilter().WithActor("user-4"), true},
		{"other actor", NewAuditLogFilter().WithActor("user-1"), false},
		{"role", NewAuditLogFilter().WithRole(RoleEmployee), true},
		{"other role", NewAuditLogFilter().WithRole(RoleAdmin), false},
		{"kind", NewAuditLogFilter().WithKind(KindTask), true},
		{"record", NewAuditLogFilter().WithRecord(KindTask, "task-2"), false},
		{"action", NewAuditLogFilter().WithAction(ActionDelete), false},
		{"outcome", NewAuditLogFilter().WithOutcome(OutcomeHidden), true},
		{"other outcome", NewAuditLogFilter().WithOutcome(OutcomeAllowed), false},
		{"since before", NewAuditLogFilter().WithSince(at.Add(-time.Hour)), true},
		{"since after", NewAuditLogFilter().WithSince(at.Add(time.Hour)), false},
		{"until after", NewAuditLogFilter().WithUntil(at.Add(time.Hour)), true},
		{"until before", NewAuditLogFilter().WithUntil(at.Add(-time.Hour)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(entry))
		})
	}
}

// TestAuditLogFilterLimit tests the default limit
func TestAuditLogFilterLimit(t *testing.T) {
	assert.Equal(t, DefaultAuditLimit, AuditLogFilter{}.limit())
	assert.Equal(t, 5, AuditLogFilter{Limit: 5}.limit())
}
