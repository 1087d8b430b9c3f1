package agencykit

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// DATA RETRIEVAL
// ============================================================================

// Snapshot loads every collection in insertion order. The result is not
// scoped; pass it through ScopeDataset before showing it to an actor.
// When the service holds a *dbkit.DBKit the reads share one read-only
// transaction so ownership references are consistent. Transient connection
// errors are retried.
func (s *Service) Snapshot(ctx context.Context) (*Dataset, error) {
	var ds *Dataset
	load := func(ctx context.Context) error {
		var err error
		ds, err = s.loadDataset(ctx)
		return err
	}
	err := retryTransient(ctx, readAttempts, 100*time.Millisecond, func() error {
		if _, ok := s.conn(ctx).(*dbkit.DBKit); ok {
			return s.ReadOnlyTransaction(ctx, load)
		}
		return load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return ds, nil
}

func (s *Service) loadDataset(ctx context.Context) (*Dataset, error) {
	ds := &Dataset{}
	steps := []struct {
		op   string
		dest any
	}{
		{"ListClients", &ds.Clients},
		{"ListEmployees", &ds.Employees},
		{"ListProjects", &ds.Projects},
		{"ListTasks", &ds.Tasks},
		{"ListInvoices", &ds.Invoices},
		{"ListFolders", &ds.Folders},
		{"ListDocuments", &ds.Documents},
	}
	db := s.conn(ctx)
	for _, step := range steps {
		err := dbkit.WithErr1(db.NewSelect().Model(step.dest).Order("created_at ASC", "id ASC").Scan(ctx), step.op).Err()
		if err != nil {
			return nil, err
		}
	}
	ds.normalize()
	return ds, nil
}

// normalize replaces nil slices so JSON encodes them as [].
func (d *Dataset) normalize() {
	if d.Clients == nil {
		d.Clients = []Client{}
	}
	if d.Employees == nil {
		d.Employees = []Employee{}
	}
	if d.Projects == nil {
		d.Projects = []Project{}
	}
	if d.Tasks == nil {
		d.Tasks = []Task{}
	}
	if d.Invoices == nil {
		d.Invoices = []Invoice{}
	}
	if d.Folders == nil {
		d.Folders = []Folder{}
	}
	if d.Documents == nil {
		d.Documents = []Document{}
	}
	for i := range d.Projects {
		if d.Projects[i].MemberIDs == nil {
			d.Projects[i].MemberIDs = []string{}
		}
	}
}

// ScopedSnapshot loads the data and narrows it to the actor in ctx.
func (s *Service) ScopedSnapshot(ctx context.Context) (*Dataset, error) {
	ds, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.table.ScopeDataset(ActorFromContext(ctx), ds), nil
}

// UserByID loads a login account.
func (s *Service) UserByID(ctx context.Context, id string) (*User, error) {
	return s.findUser(ctx, "UserByID", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id)
	})
}

// UserByUsername loads a login account by username.
func (s *Service) UserByUsername(ctx context.Context, username string) (*User, error) {
	return s.findUser(ctx, "UserByUsername", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("username = ?", username)
	})
}

func (s *Service) findUser(ctx context.Context, op string, where func(*bun.SelectQuery) *bun.SelectQuery) (*User, error) {
	var user User
	err := dbkit.WithErr1(where(s.conn(ctx).NewSelect().Model(&user)).Limit(1).Scan(ctx), op).Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, NewError(ErrNotFound, "user")
		}
		return nil, err
	}
	return &user, nil
}

// GetChecker creates a Checker for a stored user.
func (s *Service) GetChecker(ctx context.Context, userID string) (*Checker, error) {
	user, err := s.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NewChecker(user.Actor(), s.table), nil
}
