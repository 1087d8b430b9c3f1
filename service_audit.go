package agencykit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// AUDIT LOG
// ============================================================================

// GetAuditLog retrieves audit log entries, newest first, with optional filters.
//
// Example:
//
//	denied, err := service.GetAuditLog(ctx, agencykit.NewAuditLogFilter().
//	    WithOutcome(agencykit.OutcomeDenied).
//	    WithSince(time.Now().Add(-24*time.Hour)))
func (s *Service) GetAuditLog(ctx context.Context, filter AuditLogFilter) ([]AccessAuditLog, error) {
	var logs []AccessAuditLog
	q := s.conn(ctx).NewSelect().Model(&logs)
	if filter.ActorID != "" {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.Role != "" {
		q = q.Where("actor_role = ?", string(filter.Role))
	}
	if filter.Kind != "" {
		q = q.Where("kind = ?", string(filter.Kind))
	}
	if filter.RecordID != "" {
		q = q.Where("record_id = ?", filter.RecordID)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", string(filter.Action))
	}
	if filter.Outcome != "" {
		q = q.Where("outcome = ?", string(filter.Outcome))
	}
	if !filter.Since.IsZero() {
		q = q.Where("timestamp >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("timestamp <= ?", filter.Until)
	}

	q = q.Limit(filter.limit())
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	q = q.Order("timestamp DESC")
	err := dbkit.WithErr1(q.Scan(ctx), "GetAuditLog").Err()
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []AccessAuditLog{}
	}
	return logs, nil
}
