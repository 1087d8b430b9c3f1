package agencykit

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorize(t *testing.T) {
	err := DefaultTable.Authorize(nil, ActionCreate, KindClient)
	assert.ErrorIs(t, err, ErrNoActor)

	err = DefaultTable.Authorize(sales, ActionDelete, KindClient)
	require.ErrorIs(t, err, ErrUnauthorized)
	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "user-3", e.UserID)
	assert.Equal(t, ActionDelete, e.Action)
	assert.Equal(t, KindClient, e.Kind)

	assert.NoError(t, DefaultTable.Authorize(dev, ActionUpdate, KindTask))
}

func TestGateWriteOrder(t *testing.T) {
	ds := SeedDataset()

	t.Run("capability before visibility", func(t *testing.T) {
		err := gateWrite(DefaultTable, dev, ActionDelete, &Task{ID: "task-1"}, ds.Find(&Task{ID: "task-1"}), ds)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("visibility before validation", func(t *testing.T) {
		err := gateWrite(DefaultTable, dev, ActionUpdate, &Task{ID: "task-1"}, ds.Find(&Task{ID: "task-1"}), ds)
		assert.True(t, IsNotFound(err))
	})

	t.Run("missing row", func(t *testing.T) {
		err := gateWrite(DefaultTable, admin, ActionUpdate, &Task{ID: "task-9"}, nil, ds)
		assert.True(t, IsNotFound(err))
	})

	t.Run("delete skips validation", func(t *testing.T) {
		err := gateWrite(DefaultTable, admin, ActionDelete, &Task{ID: "task-1"}, ds.Find(&Task{ID: "task-1"}), ds)
		assert.NoError(t, err)
	})
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, OutcomeAllowed, outcomeOf(nil))
	assert.Equal(t, OutcomeHidden, outcomeOf(notFound(KindTask, "task-1")))
	assert.Equal(t, OutcomeDenied, outcomeOf(NewError(ErrUnauthorized, "")))
	assert.Equal(t, OutcomeDenied, outcomeOf(ErrNoActor))
}

func TestValidateRecord(t *testing.T) {
	ok := &Invoice{InvoiceNumber: "INV-9", ProjectID: "proj-1", Amount: 10, Status: InvoiceSent, IssueDate: "2024-08-01"}
	assert.NoError(t, ValidateRecord(ok))

	err := ValidateRecord(&Invoice{ProjectID: "proj-1", Status: "Unpaid"})
	require.True(t, IsInvalidRecord(err))
	assert.Contains(t, err.Error(), "InvoiceNumber failed required")
	assert.Contains(t, err.Error(), "Status failed oneof")

	assert.NoError(t, ValidateRecord(&Project{Name: "P", ClientID: "cli-1", Status: ProjectOnHold}))
}

func TestCheckReferences(t *testing.T) {
	ds := SeedDataset()

	assert.NoError(t, checkReferences(dev, &Task{ProjectID: "proj-2", AssigneeID: "emp-4"}, ds))
	assert.True(t, IsInvalidRecord(checkReferences(dev, &Task{ProjectID: "proj-3"}, ds)))
	assert.NoError(t, checkReferences(admin, &Task{ProjectID: "proj-3"}, ds))
	assert.NoError(t, checkReferences(admin, &Invoice{ProjectID: "proj-2"}, ds))
	assert.True(t, IsInvalidRecord(checkReferences(admin, &Invoice{ProjectID: "proj-9"}, ds)))
	assert.NoError(t, checkReferences(admin, &Client{}, ds))
}

func TestNewRecordID(t *testing.T) {
	prefixes := map[string]Record{
		"cli-":    &Client{},
		"emp-":    &Employee{},
		"proj-":   &Project{},
		"task-":   &Task{},
		"inv-":    &Invoice{},
		"folder-": &Folder{},
		"doc-":    &Document{},
	}
	for prefix, rec := range prefixes {
		id := NewRecordID(rec)
		assert.True(t, strings.HasPrefix(id, prefix), id)
	}
	assert.NotEqual(t, NewRecordID(&Task{}), NewRecordID(&Task{}))
}

func TestDatasetFind(t *testing.T) {
	ds := SeedDataset()

	found := ds.Find(&Project{ID: "proj-2"})
	require.NotNil(t, found)
	p := found.(*Project)
	assert.Equal(t, "Mobile App Dev", p.Name)

	p.Name = "changed"
	assert.Equal(t, "Mobile App Dev", ds.Projects[1].Name)

	assert.Nil(t, ds.Find(&Project{ID: "proj-9"}))
	assert.Nil(t, ds.Find(&Folder{ID: "doc-1"}))
}

func TestFolderUsesDocumentCapability(t *testing.T) {
	assert.Equal(t, KindDocument, (&Folder{}).Kind())
	assert.True(t, CanCreate(admin, (&Folder{}).Kind()))
	assert.False(t, CanCreate(hr, (&Folder{}).Kind()))
}
