package agencykit

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MemoryStore is an in-process Repository. It applies the same gates as
// Service and is meant for tests, demos and the sample app.
// It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	data    *Dataset
	users   []User
	audit   []AccessAuditLog
	table   *Table
	logger  *zap.Logger
	metrics *Metrics
	now     func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryTable replaces DefaultTable.
func WithMemoryTable(t *Table) MemoryOption {
	return func(m *MemoryStore) {
		m.table = t
	}
}

// WithMemoryLogger sets the logger for refused writes.
func WithMemoryLogger(l *zap.Logger) MemoryOption {
	return func(m *MemoryStore) {
		m.logger = l
	}
}

// WithMemoryMetrics records writes.
func WithMemoryMetrics(metrics *Metrics) MemoryOption {
	return func(m *MemoryStore) {
		m.metrics = metrics
	}
}

// NewMemoryStore creates a store holding a copy of ds and users.
// A nil ds starts empty.
func NewMemoryStore(ds *Dataset, users []User, opts ...MemoryOption) *MemoryStore {
	if ds == nil {
		ds = &Dataset{}
	}
	m := &MemoryStore{
		data:   cloneDataset(ds),
		users:  slices.Clone(users),
		table:  DefaultTable,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewSeededMemoryStore returns a store loaded with SeedDataset and SeedUsers.
func NewSeededMemoryStore(opts ...MemoryOption) *MemoryStore {
	return NewMemoryStore(SeedDataset(), SeedUsers(), opts...)
}

// Snapshot returns a deep copy of every collection.
func (m *MemoryStore) Snapshot(ctx context.Context) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneDataset(m.data), nil
}

// Create inserts rec after the capability gate and reference checks.
func (m *MemoryStore) Create(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	actor := ActorFromContext(ctx)
	if rec.GetID() == "" {
		rec.SetID(NewRecordID(rec))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	err := gateWrite(m.table, actor, ActionCreate, rec, nil, m.data)
	if err == nil {
		if m.data.Find(rec) != nil {
			err = NewError(ErrInvalidRecord, "duplicate id").WithKind(rec.Kind()).WithRecord(rec.GetID())
		} else {
			m.data.insert(rec)
		}
	}
	m.recordWrite(ctx, ActionCreate, rec, err)
	return err
}

// Update replaces the stored row after both gates.
func (m *MemoryStore) Update(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	actor := ActorFromContext(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	err := gateWrite(m.table, actor, ActionUpdate, rec, m.data.Find(rec), m.data)
	if err == nil {
		m.data.replace(rec)
	}
	m.recordWrite(ctx, ActionUpdate, rec, err)
	return err
}

// Delete removes the stored row and its children after both gates.
func (m *MemoryStore) Delete(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	actor := ActorFromContext(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	err := gateWrite(m.table, actor, ActionDelete, rec, m.data.Find(rec), m.data)
	if err == nil {
		m.data.remove(rec)
	}
	m.recordWrite(ctx, ActionDelete, rec, err)
	return err
}

// UserByID returns a copy of the login with the given ID.
func (m *MemoryStore) UserByID(ctx context.Context, id string) (*User, error) {
	return m.findUser(func(u User) bool { return u.ID == id })
}

// UserByUsername returns a copy of the login with the given username.
func (m *MemoryStore) UserByUsername(ctx context.Context, username string) (*User, error) {
	return m.findUser(func(u User) bool { return u.Username == username })
}

func (m *MemoryStore) findUser(match func(User) bool) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, NewError(ErrNotFound, "user")
}

// AssignRole mirrors Service.AssignRole.
func (m *MemoryStore) AssignRole(ctx context.Context, userID string, role Role, entityID string) (*User, error) {
	actor := ActorFromContext(ctx)
	if err := authorizeAssignment(actor, userID, role, entityID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx := slices.IndexFunc(m.users, func(u User) bool { return u.ID == userID })
	if idx < 0 {
		return nil, NewError(ErrNotFound, "user")
	}
	var exists bool
	if role == RoleClient {
		exists = containsID(m.data.Clients, entityID, func(c Client) string { return c.ID })
	} else {
		exists = containsID(m.data.Employees, entityID, func(e Employee) string { return e.ID })
	}
	if !exists {
		return nil, unknownEntity(role, entityID)
	}

	m.users[idx].Role = role
	m.users[idx].EntityID = entityID
	m.logger.Info("role assigned",
		zap.String("actor_id", actor.UserID),
		zap.String("user_id", userID),
		zap.String("role", string(role)),
		zap.String("entity_id", entityID))
	updated := m.users[idx]
	return &updated, nil
}

// IsHealthy always reports true.
func (m *MemoryStore) IsHealthy(context.Context) bool {
	return true
}

// GetAuditLog returns recorded writes, newest first.
func (m *MemoryStore) GetAuditLog(ctx context.Context, filter AuditLogFilter) ([]AccessAuditLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []AccessAuditLog{}
	skipped := 0
	for i := len(m.audit) - 1; i >= 0 && len(out) < filter.limit(); i-- {
		e := m.audit[i]
		if !filter.Matches(&e) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// recordWrite mirrors Service.recordWrite. Callers hold m.mu.
func (m *MemoryStore) recordWrite(ctx context.Context, action Action, rec Record, err error) {
	if err != nil && !IsUnauthorized(err) && !IsNotFound(err) {
		return
	}
	outcome := outcomeOf(err)
	m.metrics.ObserveWrite(action, rec.Kind(), outcome)

	entry := GetAuditContext(ctx).entry(action, rec.Kind(), rec.GetID(), outcome)
	if entry.Actor == nil {
		entry.Actor = &Actor{UserID: "anonymous"}
	}
	row := entry.ToModel()
	row.ID = uuid.NewString()
	row.Timestamp = m.now()
	m.audit = append(m.audit, *row)

	if err != nil {
		m.logger.Debug("write refused",
			zap.String("user_id", entry.Actor.UserID),
			zap.String("role", string(entry.Actor.Role)),
			zap.String("check", KindPermission(action, rec.Kind()).String()),
			zap.String("outcome", string(outcome)))
	}
}

func cloneDataset(ds *Dataset) *Dataset {
	out := &Dataset{
		Clients:   slices.Clone(ds.Clients),
		Employees: slices.Clone(ds.Employees),
		Projects:  slices.Clone(ds.Projects),
		Tasks:     slices.Clone(ds.Tasks),
		Invoices:  slices.Clone(ds.Invoices),
		Folders:   slices.Clone(ds.Folders),
		Documents: slices.Clone(ds.Documents),
	}
	for i := range out.Projects {
		out.Projects[i].MemberIDs = slices.Clone(out.Projects[i].MemberIDs)
	}
	out.normalize()
	return out
}

func (d *Dataset) insert(rec Record) {
	switch r := rec.(type) {
	case *Client:
		d.Clients = append(d.Clients, *r)
	case *Employee:
		d.Employees = append(d.Employees, *r)
	case *Project:
		p := *r
		p.MemberIDs = slices.Clone(r.MemberIDs)
		d.Projects = append(d.Projects, p)
	case *Task:
		d.Tasks = append(d.Tasks, *r)
	case *Invoice:
		d.Invoices = append(d.Invoices, *r)
	case *Folder:
		d.Folders = append(d.Folders, *r)
	case *Document:
		d.Documents = append(d.Documents, *r)
	}
}

// replace overwrites the row in place so collection order is kept.
func (d *Dataset) replace(rec Record) {
	switch r := rec.(type) {
	case *Client:
		replaceRow(d.Clients, *r)
	case *Employee:
		replaceRow(d.Employees, *r)
	case *Project:
		p := *r
		p.MemberIDs = slices.Clone(r.MemberIDs)
		replaceRow(d.Projects, p)
	case *Task:
		replaceRow(d.Tasks, *r)
	case *Invoice:
		replaceRow(d.Invoices, *r)
	case *Folder:
		replaceRow(d.Folders, *r)
	case *Document:
		replaceRow(d.Documents, *r)
	}
}

func replaceRow[T any, PT interface {
	*T
	Record
}](rows []T, row T) {
	id := PT(&row).GetID()
	for i := range rows {
		if PT(&rows[i]).GetID() == id {
			rows[i] = row
			return
		}
	}
}

// remove deletes the row and cascades to its children.
func (d *Dataset) remove(rec Record) {
	id := rec.GetID()
	switch rec.(type) {
	case *Client:
		var owned []string
		for _, p := range d.Projects {
			if p.ClientID == id {
				owned = append(owned, p.ID)
			}
		}
		for _, pid := range owned {
			d.remove(&Project{ID: pid})
		}
		d.Clients = deleteByID(d.Clients, id)
	case *Employee:
		d.Employees = deleteByID(d.Employees, id)
	case *Project:
		d.Tasks = slices.DeleteFunc(d.Tasks, func(t Task) bool { return t.ProjectID == id })
		d.Invoices = slices.DeleteFunc(d.Invoices, func(i Invoice) bool { return i.ProjectID == id })
		d.Projects = deleteByID(d.Projects, id)
	case *Task:
		d.Tasks = deleteByID(d.Tasks, id)
	case *Invoice:
		d.Invoices = deleteByID(d.Invoices, id)
	case *Folder:
		d.Documents = slices.DeleteFunc(d.Documents, func(doc Document) bool { return doc.FolderID == id })
		d.Folders = deleteByID(d.Folders, id)
	case *Document:
		d.Documents = deleteByID(d.Documents, id)
	}
}

func deleteByID[T any, PT interface {
	*T
	Record
}](rows []T, id string) []T {
	return slices.DeleteFunc(rows, func(r T) bool { return PT(&r).GetID() == id })
}
