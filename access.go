package agencykit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Authorize is the capability gate for a write. It only consults the
// table; callers must follow it with the visibility gate for existing rows.
func (t *Table) Authorize(actor *Actor, action Action, kind ResourceKind) error {
	if actor == nil {
		return NewError(ErrNoActor, "actor required").WithAction(action).WithKind(kind)
	}
	if !t.Can(actor, action, kind) {
		return NewError(ErrUnauthorized, fmt.Sprintf("%s may not %s %s", actor.Role, action, kind)).
			WithActor(actor).
			WithAction(action).
			WithKind(kind)
	}
	return nil
}

// ensureVisible is the visibility gate. A row the actor cannot see is
// reported as not found so its existence is not disclosed.
func ensureVisible(table *Table, actor *Actor, rec Record, projects []Project) error {
	if !table.CanSee(actor, rec, projects) {
		return notFound(rec.Kind(), rec.GetID())
	}
	return nil
}

func notFound(kind ResourceKind, id string) error {
	return NewError(ErrNotFound, fmt.Sprintf("%s %q", kind, id)).WithKind(kind).WithRecord(id)
}

var validate = validator.New()

// ValidateRecord checks field constraints on a record.
func ValidateRecord(rec Record) error {
	if err := validate.Struct(rec); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return NewError(ErrInvalidRecord, strings.Join(msgs, "; ")).WithKind(rec.Kind()).WithRecord(rec.GetID())
		}
		return NewError(ErrInvalidRecord, err.Error()).WithKind(rec.Kind())
	}
	return nil
}

// checkReferences validates the foreign references of a record being written
// against the current data. Tasks must point at a project the actor may
// assign to; invoices and projects must point at existing parents.
func checkReferences(actor *Actor, rec Record, ds *Dataset) error {
	switch r := rec.(type) {
	case *Project:
		if !containsID(ds.Clients, r.ClientID, func(c Client) string { return c.ID }) {
			return invalidRef(rec, "client", r.ClientID)
		}
		for _, m := range r.MemberIDs {
			if !containsID(ds.Employees, m, func(e Employee) string { return e.ID }) {
				return invalidRef(rec, "member", m)
			}
		}
	case *Task:
		if !containsID(AssignableProjects(actor, ds.Projects), r.ProjectID, func(p Project) string { return p.ID }) {
			return invalidRef(rec, "project", r.ProjectID)
		}
		if r.AssigneeID != "" && !containsID(ds.Employees, r.AssigneeID, func(e Employee) string { return e.ID }) {
			return invalidRef(rec, "assignee", r.AssigneeID)
		}
	case *Invoice:
		if !containsID(ds.Projects, r.ProjectID, func(p Project) string { return p.ID }) {
			return invalidRef(rec, "project", r.ProjectID)
		}
	case *Document:
		if !containsID(ds.Folders, r.FolderID, func(f Folder) string { return f.ID }) {
			return invalidRef(rec, "folder", r.FolderID)
		}
	}
	return nil
}

func invalidRef(rec Record, field, id string) error {
	return NewError(ErrInvalidRecord, fmt.Sprintf("unknown %s %q", field, id)).
		WithKind(rec.Kind()).
		WithRecord(rec.GetID())
}

func containsID[T any](rows []T, id string, idOf func(T) string) bool {
	for _, r := range rows {
		if idOf(r) == id {
			return true
		}
	}
	return false
}

// NewRecordID returns a fresh ID with a readable per-kind prefix,
// for example "task-3f0c...".
func NewRecordID(rec Record) string {
	prefix := "rec"
	switch rec.(type) {
	case *Client:
		prefix = "cli"
	case *Employee:
		prefix = "emp"
	case *Project:
		prefix = "proj"
	case *Task:
		prefix = "task"
	case *Invoice:
		prefix = "inv"
	case *Folder:
		prefix = "folder"
	case *Document:
		prefix = "doc"
	}
	return prefix + "-" + uuid.NewString()
}

// gateWrite runs the capability gate, then the visibility gate on the stored
// row, then validation. current is the stored version of rec for update and
// delete and nil for create.
func gateWrite(table *Table, actor *Actor, action Action, rec, current Record, ds *Dataset) error {
	if err := table.Authorize(actor, action, rec.Kind()); err != nil {
		return err
	}
	if action != ActionCreate {
		if current == nil {
			return notFound(rec.Kind(), rec.GetID())
		}
		if err := ensureVisible(table, actor, current, ds.Projects); err != nil {
			return err
		}
	}
	if action == ActionDelete {
		return nil
	}
	if err := ValidateRecord(rec); err != nil {
		return err
	}
	return checkReferences(actor, rec, ds)
}

// outcomeOf classifies a gate error for the audit log.
func outcomeOf(err error) AuditOutcome {
	switch {
	case err == nil:
		return OutcomeAllowed
	case IsNotFound(err):
		return OutcomeHidden
	}
	return OutcomeDenied
}

// Find returns a copy of the stored row with the same type and ID as rec,
// or nil when there is none.
func (d *Dataset) Find(rec Record) Record {
	id := rec.GetID()
	switch rec.(type) {
	case *Client:
		return findRow(d.Clients, id)
	case *Employee:
		return findRow(d.Employees, id)
	case *Project:
		return findRow(d.Projects, id)
	case *Task:
		return findRow(d.Tasks, id)
	case *Invoice:
		return findRow(d.Invoices, id)
	case *Folder:
		return findRow(d.Folders, id)
	case *Document:
		return findRow(d.Documents, id)
	}
	return nil
}

// findRow returns a pointer to a copy of the matching row.
func findRow[T any, PT interface {
	*T
	Record
}](rows []T, id string) Record {
	for i := range rows {
		if PT(&rows[i]).GetID() == id {
			row := rows[i]
			return PT(&row)
		}
	}
	return nil
}
