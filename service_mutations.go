package agencykit

import (
	"context"

	"go.uber.org/zap"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// GATED WRITES
// ============================================================================

// Create inserts a record on behalf of the actor in ctx. A missing ID is
// generated. The actor's role must hold the create capability for the
// record's kind, and references must resolve (a task's project must be one
// the actor may assign to).
//
// Example:
//
//	ctx = agencykit.WithActor(ctx, actor)
//	err := service.Create(ctx, &agencykit.Client{Name: "Acme", Email: "ops@acme.test"})
func (s *Service) Create(ctx context.Context, rec Record) error {
	actor := ActorFromContext(ctx)
	if rec.GetID() == "" {
		rec.SetID(NewRecordID(rec))
	}
	err := s.table.Authorize(actor, ActionCreate, rec.Kind())
	if err == nil {
		err = s.Transaction(ctx, func(ctx context.Context) error {
			ds, err := s.loadDataset(ctx)
			if err != nil {
				return err
			}
			if err := gateWrite(s.table, actor, ActionCreate, rec, nil, ds); err != nil {
				return err
			}
			result, err := s.conn(ctx).NewInsert().Model(rec).Exec(ctx)
			return dbkit.WithErr(result, err, "Create"+string(rec.Kind())).Err()
		})
	}
	s.recordWrite(ctx, ActionCreate, rec, err)
	return err
}

// Update replaces a stored record. Besides the update capability, the
// stored row must be visible to the actor; a row outside the actor's scope
// is reported as not found. This is what confines an Employee, whose role
// may update any task, to the tasks assigned to it.
func (s *Service) Update(ctx context.Context, rec Record) error {
	actor := ActorFromContext(ctx)
	err := s.table.Authorize(actor, ActionUpdate, rec.Kind())
	if err == nil {
		err = s.Transaction(ctx, func(ctx context.Context) error {
			ds, err := s.loadDataset(ctx)
			if err != nil {
				return err
			}
			if err := gateWrite(s.table, actor, ActionUpdate, rec, ds.Find(rec), ds); err != nil {
				return err
			}
			result, err := s.conn(ctx).NewUpdate().Model(rec).ExcludeColumn("created_at").WherePK().Exec(ctx)
			return dbkit.WithErr(result, err, "Update"+string(rec.Kind())).Err()
		})
	}
	s.recordWrite(ctx, ActionUpdate, rec, err)
	return err
}

// Delete removes the stored record with rec's type and ID. Only the ID of
// rec is read. Children go with their parent: a folder's documents, a
// project's tasks and invoices, a client's projects.
func (s *Service) Delete(ctx context.Context, rec Record) error {
	actor := ActorFromContext(ctx)
	err := s.table.Authorize(actor, ActionDelete, rec.Kind())
	if err == nil {
		err = s.Transaction(ctx, func(ctx context.Context) error {
			ds, err := s.loadDataset(ctx)
			if err != nil {
				return err
			}
			current := ds.Find(rec)
			if err := gateWrite(s.table, actor, ActionDelete, rec, current, ds); err != nil {
				return err
			}
			if err := s.deleteChildren(ctx, current); err != nil {
				return err
			}
			result, err := s.conn(ctx).NewDelete().Model(current).WherePK().Exec(ctx)
			return dbkit.WithErr(result, err, "Delete"+string(rec.Kind())).Err()
		})
	}
	s.recordWrite(ctx, ActionDelete, rec, err)
	return err
}

// deleteChildren removes dependent rows explicitly. The schema cascades as
// well; doing it here keeps the behaviour identical to MemoryStore.
func (s *Service) deleteChildren(ctx context.Context, rec Record) error {
	db := s.conn(ctx)
	var err error
	switch r := rec.(type) {
	case *Folder:
		_, err = db.NewDelete().Model((*Document)(nil)).Where("folder_id = ?", r.ID).Exec(ctx)
	case *Project:
		if _, err = db.NewDelete().Model((*Task)(nil)).Where("project_id = ?", r.ID).Exec(ctx); err == nil {
			_, err = db.NewDelete().Model((*Invoice)(nil)).Where("project_id = ?", r.ID).Exec(ctx)
		}
	case *Client:
		sub := db.NewSelect().Model((*Project)(nil)).Column("id").Where("client_id = ?", r.ID)
		if _, err = db.NewDelete().Model((*Task)(nil)).Where("project_id IN (?)", sub).Exec(ctx); err == nil {
			if _, err = db.NewDelete().Model((*Invoice)(nil)).Where("project_id IN (?)", sub).Exec(ctx); err == nil {
				_, err = db.NewDelete().Model((*Project)(nil)).Where("client_id = ?", r.ID).Exec(ctx)
			}
		}
	}
	return dbkit.WithErr1(err, "DeleteChildren").Err()
}

// recordWrite writes the audit row and metrics for a gated write. Audit
// failures are logged and never fail the write.
func (s *Service) recordWrite(ctx context.Context, action Action, rec Record, err error) {
	if err != nil && !IsUnauthorized(err) && !IsNotFound(err) {
		// validation and database failures are not access decisions
		return
	}
	outcome := outcomeOf(err)
	s.metrics.ObserveWrite(action, rec.Kind(), outcome)

	entry := GetAuditContext(ctx).entry(action, rec.Kind(), rec.GetID(), outcome)
	if entry.Actor == nil {
		entry.Actor = &Actor{UserID: "anonymous"}
	}
	if logErr := s.logAudit(context.WithoutCancel(ctx), entry); logErr != nil {
		s.logger.Warn("audit write failed",
			zap.String("action", string(action)),
			zap.String("kind", string(rec.Kind())),
			zap.String("record_id", rec.GetID()),
			zap.Error(logErr))
	}
	if err != nil {
		s.logger.Debug("write refused",
			zap.String("user_id", entry.Actor.UserID),
			zap.String("role", string(entry.Actor.Role)),
			zap.String("check", KindPermission(action, rec.Kind()).String()),
			zap.String("outcome", string(outcome)))
	}
}

func (s *Service) logAudit(ctx context.Context, entry *AuditEntry) error {
	// outside any caller transaction so denials survive a rollback
	_, err := s.db.NewInsert().Model(entry.ToModel()).Exec(ctx)
	return dbkit.WithErr1(err, "LogAudit").Err()
}
