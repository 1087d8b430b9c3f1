package agencykit

import (
	"errors"
	"fmt"
	"strings"
)

// PermissionEntry holds what a single role may view and change.
// Every category is present; "no permission" is an empty set.
type PermissionEntry struct {
	view   map[Page]struct{}
	create map[ResourceKind]struct{}
	update map[ResourceKind]struct{}
	delete map[ResourceKind]struct{}
}

func newPermissionEntry() *PermissionEntry {
	return &PermissionEntry{
		view:   make(map[Page]struct{}),
		create: make(map[ResourceKind]struct{}),
		update: make(map[ResourceKind]struct{}),
		delete: make(map[ResourceKind]struct{}),
	}
}

// CanView reports whether the page is in the view set.
func (e PermissionEntry) CanView(page Page) bool {
	_, ok := e.view[page]
	return ok
}

// Allows reports whether kind is in the set for a mutating action.
// ActionView is answered against pages and therefore always false here.
func (e PermissionEntry) Allows(action Action, kind ResourceKind) bool {
	set := e.kinds(action)
	if set == nil {
		return false
	}
	_, ok := set[kind]
	return ok
}

// Pages returns the viewable pages in navigation order.
func (e PermissionEntry) Pages() []Page {
	pages := make([]Page, 0, len(e.view))
	for _, p := range AllPages() {
		if e.CanView(p) {
			pages = append(pages, p)
		}
	}
	return pages
}

// Kinds returns the resource kinds granted for a mutating action, in stable order.
func (e PermissionEntry) Kinds(action Action) []ResourceKind {
	kinds := make([]ResourceKind, 0, len(e.kinds(action)))
	for _, k := range AllResourceKinds() {
		if e.Allows(action, k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func (e PermissionEntry) kinds(action Action) map[ResourceKind]struct{} {
	switch action {
	case ActionCreate:
		return e.create
	case ActionUpdate:
		return e.update
	case ActionDelete:
		return e.delete
	}
	return nil
}

// Table is the complete role to capability mapping.
// It is read-only once built and safe for concurrent use.
type Table struct {
	entries map[Role]PermissionEntry
}

// Entry returns the permission entry for a role.
func (t *Table) Entry(role Role) (PermissionEntry, bool) {
	if t == nil {
		return PermissionEntry{}, false
	}
	e, ok := t.entries[role]
	return e, ok
}

// Roles returns the roles present in the table in stable order.
func (t *Table) Roles() []Role {
	roles := make([]Role, 0, len(t.entries))
	for _, r := range AllRoles() {
		if _, ok := t.entries[r]; ok {
			roles = append(roles, r)
		}
	}
	return roles
}

// TableBuilder assembles a Table with a fluent API.
//
// Example:
//
//	table, err := agencykit.NewTableBuilder().
//	    Role(agencykit.RoleSales).
//	        View(agencykit.PageDashboard, agencykit.PageClients).
//	        Create(agencykit.KindClient).
//	    Role(agencykit.RoleClient).
//	        View(agencykit.PageDashboard).
//	    Build()
type TableBuilder struct {
	entries map[Role]*PermissionEntry
	errs    []error
}

// NewTableBuilder creates an empty builder.
func NewTableBuilder() *TableBuilder {
	return &TableBuilder{entries: make(map[Role]*PermissionEntry)}
}

// Role starts the entry for a role. All four categories start empty.
func (b *TableBuilder) Role(role Role) *EntryBuilder {
	if !role.IsValid() {
		b.errs = append(b.errs, NewError(ErrInvalidRole, fmt.Sprintf("unknown role %q", role)))
	} else if _, exists := b.entries[role]; exists {
		b.errs = append(b.errs, NewError(ErrInvalidRole, fmt.Sprintf("role %q defined twice", role)).WithRole(role))
	}
	entry := newPermissionEntry()
	if role.IsValid() {
		b.entries[role] = entry
	}
	return &EntryBuilder{builder: b, role: role, entry: entry}
}

// Build validates the table. Every role returned by AllRoles must have an
// entry, otherwise the error wraps ErrMissingRole.
func (b *TableBuilder) Build() (*Table, error) {
	errs := append([]error(nil), b.errs...)

	var missing []string
	for _, r := range AllRoles() {
		if _, ok := b.entries[r]; !ok {
			missing = append(missing, string(r))
		}
	}
	if len(missing) > 0 {
		errs = append(errs, NewError(ErrMissingRole, strings.Join(missing, ", ")))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	t := &Table{entries: make(map[Role]PermissionEntry, len(b.entries))}
	for r, e := range b.entries {
		t.entries[r] = *e
	}
	return t, nil
}

// MustBuild builds the table and panics on any error.
// Use it for tables assembled during program initialization.
func MustBuild(b *TableBuilder) *Table {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}

// EntryBuilder configures one role's entry.
type EntryBuilder struct {
	builder *TableBuilder
	role    Role
	entry   *PermissionEntry
}

// View adds viewable pages.
func (e *EntryBuilder) View(pages ...Page) *EntryBuilder {
	for _, p := range pages {
		if !p.IsValid() {
			e.builder.errs = append(e.builder.errs, NewError(ErrInvalidPage, fmt.Sprintf("unknown page %q", p)).WithRole(e.role))
			continue
		}
		e.entry.view[p] = struct{}{}
	}
	return e
}

// Create adds creatable resource kinds.
func (e *EntryBuilder) Create(kinds ...ResourceKind) *EntryBuilder {
	return e.add(ActionCreate, e.entry.create, kinds)
}

// Update adds updatable resource kinds.
func (e *EntryBuilder) Update(kinds ...ResourceKind) *EntryBuilder {
	return e.add(ActionUpdate, e.entry.update, kinds)
}

// Delete adds deletable resource kinds.
func (e *EntryBuilder) Delete(kinds ...ResourceKind) *EntryBuilder {
	return e.add(ActionDelete, e.entry.delete, kinds)
}

func (e *EntryBuilder) add(action Action, set map[ResourceKind]struct{}, kinds []ResourceKind) *EntryBuilder {
	for _, k := range kinds {
		if !k.IsValid() {
			e.builder.errs = append(e.builder.errs, NewError(ErrInvalidResource, fmt.Sprintf("unknown resource kind %q", k)).
				WithRole(e.role).
				WithAction(action))
			continue
		}
		set[k] = struct{}{}
	}
	return e
}

// Role continues with the next role (fluent API).
func (e *EntryBuilder) Role(role Role) *EntryBuilder {
	return e.builder.Role(role)
}

// Build builds the table (fluent API).
func (e *EntryBuilder) Build() (*Table, error) {
	return e.builder.Build()
}

// Builder returns the underlying TableBuilder.
func (e *EntryBuilder) Builder() *TableBuilder {
	return e.builder
}

// DefaultTable is the application's permission table.
var DefaultTable = MustBuild(defaultTableBuilder())

func defaultTableBuilder() *TableBuilder {
	return NewTableBuilder().
		Role(RoleAdmin).
		View(PageDashboard, PageClients, PageProjects, PageTasks, PageInvoices, PageDocuments, PageEmployees).
		Create(KindClient, KindProject, KindTask, KindInvoice, KindDocument, KindEmployee).
		Update(KindClient, KindProject, KindTask, KindInvoice, KindDocument, KindEmployee).
		Delete(KindClient, KindProject, KindTask, KindInvoice, KindDocument, KindEmployee).
		Role(RoleHR).
		View(PageDashboard, PageDocuments, PageEmployees).
		Create(KindEmployee).
		Update(KindEmployee).
		Delete(KindEmployee).
		Role(RoleSales).
		View(PageDashboard, PageClients, PageProjects).
		Create(KindClient).
		Update(KindClient).
		Role(RoleEmployee).
		View(PageDashboard, PageProjects, PageTasks).
		// Any task at this layer; row scoping narrows it to assigned tasks.
		Update(KindTask).
		Role(RoleClient).
		View(PageDashboard, PageProjects, PageTasks, PageInvoices).
		Builder()
}
