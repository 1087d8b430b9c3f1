package agencykit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memStoredTask(t *testing.T, store Repository, id string) Task {
	t.Helper()
	ds, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	found := ds.Find(&Task{ID: id})
	require.NotNil(t, found, id)
	return *found.(*Task)
}

// TestMemoryStoreSnapshotIsCopy tests that callers cannot mutate the store
func TestMemoryStoreSnapshotIsCopy(t *testing.T) {
	store := NewSeededMemoryStore()
	ds, err := store.Snapshot(context.Background())
	require.NoError(t, err)

	ds.Projects[0].MemberIDs[0] = "emp-9"
	ds.Tasks = nil

	again, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "emp-4", again.Projects[0].MemberIDs[0])
	assert.Len(t, again.Tasks, 5)
}

// TestMemoryStoreEmptyIsNormalized tests that an empty store encodes as empty lists
func TestMemoryStoreEmptyIsNormalized(t *testing.T) {
	ds, err := NewMemoryStore(nil, nil).Snapshot(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, ds.Clients)
	assert.NotNil(t, ds.Documents)
}

// TestMemoryStoreEmployeeTaskWrites tests both gates for an employee
func TestMemoryStoreEmployeeTaskWrites(t *testing.T) {
	store := NewSeededMemoryStore()
	ctx := as(t, "dev")

	mine := memStoredTask(t, store, "task-2")
	mine.Status = TaskInProgress
	require.NoError(t, store.Update(ctx, &mine))
	assert.Equal(t, TaskInProgress, memStoredTask(t, store, "task-2").Status)

	theirs := memStoredTask(t, store, "task-1")
	theirs.Status = TaskDone
	err := store.Update(ctx, &theirs)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, TaskInProgress, memStoredTask(t, store, "task-1").Status)

	err = store.Delete(ctx, &Task{ID: "task-2"})
	assert.True(t, errors.Is(err, ErrUnauthorized))

	err = store.Create(ctx, &Task{Title: "New", ProjectID: "proj-1", Priority: PriorityLow, Status: TaskToDo})
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

// TestMemoryStoreTaskProjectReference tests that a task may only move to an assignable project
func TestMemoryStoreTaskProjectReference(t *testing.T) {
	store := NewSeededMemoryStore()

	mine := memStoredTask(t, store, "task-2")
	mine.ProjectID = "proj-3"
	err := store.Update(as(t, "dev"), &mine)
	assert.True(t, IsInvalidRecord(err))

	mine.ProjectID = "proj-1"
	assert.NoError(t, store.Update(as(t, "dev"), &mine))
}

// TestMemoryStoreReassignment tests that the stored row decides visibility
func TestMemoryStoreReassignment(t *testing.T) {
	store := NewSeededMemoryStore()
	ctx := as(t, "dev")

	mine := memStoredTask(t, store, "task-3")
	mine.AssigneeID = "emp-5"
	require.NoError(t, store.Update(ctx, &mine))

	mine.Status = TaskDone
	assert.True(t, IsNotFound(store.Update(ctx, &mine)))
}

// TestMemoryStoreSalesClients tests the Sales client lifecycle
func TestMemoryStoreSalesClients(t *testing.T) {
	store := NewSeededMemoryStore()

	client := &Client{Name: "Globex", Email: "hello@globex.test", Company: "Globex"}
	require.NoError(t, store.Create(as(t, "sales"), client))
	assert.True(t, strings.HasPrefix(client.ID, "cli-"))

	client.Company = "Globex Corp"
	require.NoError(t, store.Update(as(t, "sales"), client))

	err := store.Delete(as(t, "sales"), &Client{ID: client.ID})
	assert.True(t, errors.Is(err, ErrUnauthorized))

	require.NoError(t, store.Delete(as(t, "admin"), &Client{ID: client.ID}))
	assert.True(t, IsNotFound(store.Delete(as(t, "admin"), &Client{ID: client.ID})))
}

// TestMemoryStoreValidation tests field and reference validation
func TestMemoryStoreValidation(t *testing.T) {
	store := NewSeededMemoryStore()
	ctx := as(t, "admin")

	tests := []struct {
		name string
		rec  Record
	}{
		{"bad email", &Client{Name: "X", Email: "not-an-email"}},
		{"missing name", &Employee{Email: "x@example.com"}},
		{"bad status", &Project{Name: "X", ClientID: "cli-1", Status: "Paused"}},
		{"unknown client", &Project{Name: "X", ClientID: "cli-9", Status: ProjectActive}},
		{"unknown member", &Project{Name: "X", ClientID: "cli-1", Status: ProjectActive, MemberIDs: []string{"emp-9"}}},
		{"unknown project", &Task{Title: "X", ProjectID: "proj-9", Priority: PriorityLow, Status: TaskToDo}},
		{"unknown assignee", &Task{Title: "X", ProjectID: "proj-1", Priority: PriorityLow, Status: TaskToDo, AssigneeID: "emp-9"}},
		{"bad due date", &Task{Title: "X", ProjectID: "proj-1", Priority: PriorityLow, Status: TaskToDo, DueDate: "08/01/2024"}},
		{"negative amount", &Invoice{InvoiceNumber: "INV-9", ProjectID: "proj-1", Amount: -1, Status: InvoiceDraft}},
		{"unknown folder", &Document{Name: "X", FolderID: "folder-9"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Create(ctx, tt.rec)
			assert.True(t, IsInvalidRecord(err), "%v", err)
		})
	}

	log, err := store.GetAuditLog(context.Background(), NewAuditLogFilter())
	require.NoError(t, err)
	assert.Empty(t, log, "validation failures are not access decisions")
}

// TestMemoryStoreDuplicateID tests that IDs are unique per collection
func TestMemoryStoreDuplicateID(t *testing.T) {
	store := NewSeededMemoryStore()
	err := store.Create(as(t, "admin"), &Folder{ID: "folder-1", Name: "Again"})
	assert.True(t, IsInvalidRecord(err))
}

// TestMemoryStoreCascade tests that deletes remove dependent rows
func TestMemoryStoreCascade(t *testing.T) {
	store := NewSeededMemoryStore()
	ctx := as(t, "admin")

	require.NoError(t, store.Delete(ctx, &Client{ID: "cli-1"}))
	require.NoError(t, store.Delete(ctx, &Folder{ID: "folder-1"}))

	ds, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"proj-2"}, projectIDs(ds.Projects))
	assert.Equal(t, []string{"task-2", "task-3"}, taskIDs(ds.Tasks))
	assert.Empty(t, ds.Invoices)
	assert.Len(t, ds.Folders, 2)
	require.Len(t, ds.Documents, 1)
	assert.Equal(t, "doc-2", ds.Documents[0].ID)
}

// TestMemoryStoreUpdateKeepsOrder tests that an update does not move the row
func TestMemoryStoreUpdateKeepsOrder(t *testing.T) {
	store := NewSeededMemoryStore()
	task := memStoredTask(t, store, "task-1")
	task.Title = "Homepage v2"
	require.NoError(t, store.Update(as(t, "admin"), &task))

	ds, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"task-1", "task-2", "task-3", "task-4", "task-5"}, taskIDs(ds.Tasks))
	assert.Equal(t, "Homepage v2", ds.Tasks[0].Title)
}

// TestMemoryStoreAudit tests the audit trail of gated writes
func TestMemoryStoreAudit(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	store := NewSeededMemoryStore(WithMemoryMetrics(metrics))

	devCtx := WithAuditContext(context.Background(), AuditContext{
		Actor:     seedActor(t, "dev"),
		IPAddress: "10.0.0.4",
		RequestID: "req-1",
	})
	theirs := memStoredTask(t, store, "task-1")
	_ = store.Update(devCtx, &theirs)
	_ = store.Delete(devCtx, &Task{ID: "task-2"})
	mine := memStoredTask(t, store, "task-2")
	require.NoError(t, store.Update(devCtx, &mine))
	_ = store.Delete(context.Background(), &Task{ID: "task-3"})

	all, err := store.GetAuditLog(context.Background(), NewAuditLogFilter())
	require.NoError(t, err)
	require.Len(t, all, 4)

	assert.Equal(t, "anonymous", all[0].ActorID)
	assert.Equal(t, "denied", all[0].Outcome)

	assert.Equal(t, "allowed", all[1].Outcome)
	assert.Equal(t, "task-2", all[1].RecordID)

	assert.Equal(t, "denied", all[2].Outcome)
	assert.Equal(t, "delete", all[2].Action)

	hidden := all[3]
	assert.Equal(t, "user-4", hidden.ActorID)
	assert.Equal(t, "Employee", hidden.ActorRole)
	assert.Equal(t, "emp-4", hidden.EntityID)
	assert.Equal(t, "update", hidden.Action)
	assert.Equal(t, "Task", hidden.Kind)
	assert.Equal(t, "task-1", hidden.RecordID)
	assert.Equal(t, "hidden", hidden.Outcome)
	assert.Equal(t, "10.0.0.4", hidden.IPAddress)
	assert.Equal(t, "req-1", hidden.RequestID)
	assert.NotEmpty(t, hidden.ID)

	onlyHidden, err := store.GetAuditLog(context.Background(), NewAuditLogFilter().WithOutcome(OutcomeHidden))
	require.NoError(t, err)
	require.Len(t, onlyHidden, 1)

	page, err := store.GetAuditLog(context.Background(), NewAuditLogFilter().WithPagination(2, 1))
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, all[1].ID, page[0].ID)
	assert.Equal(t, all[2].ID, page[1].ID)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.writes.WithLabelValues("update", "Task", "hidden")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.writes.WithLabelValues("update", "Task", "allowed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.writes.WithLabelValues("delete", "Task", "denied")))
}

// TestMemoryStoreCancelledContext tests that a cancelled context stops writes
func TestMemoryStoreCancelledContext(t *testing.T) {
	store := NewSeededMemoryStore()
	ctx, cancel := context.WithCancel(as(t, "admin"))
	cancel()

	assert.ErrorIs(t, store.Delete(ctx, &Task{ID: "task-1"}), context.Canceled)
	_, err := store.Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestMemoryStoreUsers tests login lookups
func TestMemoryStoreUsers(t *testing.T) {
	store := NewSeededMemoryStore()
	ctx := context.Background()

	user, err := store.UserByUsername(ctx, "johndoe")
	require.NoError(t, err)
	assert.Equal(t, "user-5", user.ID)
	assert.Equal(t, RoleClient, user.Actor().Role)

	user, err = store.UserByID(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, "hr", user.Username)

	_, err = store.UserByUsername(ctx, "nobody")
	assert.True(t, IsNotFound(err))
	assert.True(t, store.IsHealthy(ctx))
}

// TestMemoryStoreAssignRole tests role changes on logins
func TestMemoryStoreAssignRole(t *testing.T) {
	store := NewSeededMemoryStore()
	ctx := as(t, "admin")

	user, err := store.AssignRole(ctx, "user-4", RoleSales, "emp-4")
	require.NoError(t, err)
	assert.Equal(t, RoleSales, user.Role)

	stored, err := store.UserByID(context.Background(), "user-4")
	require.NoError(t, err)
	assert.Equal(t, RoleSales, stored.Role)

	_, err = store.AssignRole(ctx, "user-4", RoleClient, "emp-4")
	assert.True(t, IsInvalidRecord(err))

	_, err = store.AssignRole(ctx, "user-4", RoleClient, "")
	assert.True(t, IsInvalidRecord(err))

	_, err = store.AssignRole(ctx, "user-4", "Owner", "emp-4")
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = store.AssignRole(ctx, "user-1", RoleHR, "emp-1")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = store.AssignRole(ctx, "user-99", RoleHR, "emp-2")
	assert.True(t, IsNotFound(err))

	_, err = store.AssignRole(as(t, "hr"), "user-4", RoleHR, "emp-4")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = store.AssignRole(context.Background(), "user-4", RoleHR, "emp-4")
	assert.ErrorIs(t, err, ErrNoActor)
}

// TestMemoryStoreConcurrentAccess tests concurrent reads and writes
func TestMemoryStoreConcurrentAccess(t *testing.T) {
	store := NewSeededMemoryStore()
	ctx := as(t, "admin")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Create(ctx, &Folder{Name: "Shared"})
		}()
		go func() {
			defer wg.Done()
			ds, err := store.Snapshot(ctx)
			if assert.NoError(t, err) {
				_ = ScopeDataset(seedActor(t, "hr"), ds)
			}
		}()
	}
	wg.Wait()

	ds, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, ds.Folders, 23)
}

// TestMemoryStoreCustomTable tests that both gates follow the store's table
func TestMemoryStoreCustomTable(t *testing.T) {
	ctx := as(t, "sales")
	emp := SeedDataset().Employees[1]
	emp.JobTitle = "People Lead"

	assert.ErrorIs(t, NewSeededMemoryStore().Update(ctx, &emp), ErrUnauthorized)

	store := NewSeededMemoryStore(WithMemoryTable(staffingTable(t)))
	require.NoError(t, store.Update(ctx, &emp))

	ds, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "People Lead", ds.Employees[1].JobTitle)

	entries, err := store.GetAuditLog(ctx, NewAuditLogFilter().WithActor("user-3"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, string(OutcomeAllowed), entries[0].Outcome)
}
