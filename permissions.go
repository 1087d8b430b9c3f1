package agencykit

import (
	"strings"
)

// Action is one of the four permission categories.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// IsValid reports whether a is a known action.
func (a Action) IsValid() bool {
	switch a {
	case ActionView, ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Permission is a single grant in "resource.action" form.
//
// View permissions name a page ("invoices.view" is PageInvoices); the
// mutating actions name a resource kind ("task.update" is KindTask).
type Permission struct {
	Action Action
	Page   Page         // set when Action is ActionView
	Kind   ResourceKind // set for create, update and delete
}

// ViewPermission returns the permission to view a page.
func ViewPermission(page Page) Permission {
	return Permission{Action: ActionView, Page: page}
}

// KindPermission returns a mutating permission on a resource kind.
func KindPermission(action Action, kind ResourceKind) Permission {
	return Permission{Action: action, Kind: kind}
}

// String returns the dotted form, for example "projects.view" or "task.update".
func (p Permission) String() string {
	if p.Action == ActionView {
		return strings.TrimPrefix(string(p.Page), "/") + "." + string(p.Action)
	}
	return strings.ToLower(string(p.Kind)) + "." + string(p.Action)
}

// ParsePermission parses the dotted form produced by Permission.String.
//
// Examples:
//
//	ParsePermission("invoices.view")  // view PageInvoices
//	ParsePermission("client.create")  // create KindClient
//	ParsePermission("Task.update")    // update KindTask
func ParsePermission(s string) (Permission, error) {
	if s == "" {
		return Permission{}, NewError(ErrInvalidPermission, "permission cannot be empty")
	}
	parts := strings.Split(s, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Permission{}, NewError(ErrInvalidPermission, "permission must have the form resource.action")
	}

	action := Action(strings.ToLower(parts[1]))
	if !action.IsValid() {
		return Permission{}, NewError(ErrInvalidPermission, "unknown action "+parts[1])
	}

	if action == ActionView {
		page := Page("/" + strings.ToLower(parts[0]))
		if !page.IsValid() {
			return Permission{}, NewError(ErrInvalidPermission, "unknown page "+parts[0])
		}
		return ViewPermission(page), nil
	}

	for _, k := range AllResourceKinds() {
		if strings.EqualFold(string(k), parts[0]) {
			return KindPermission(action, k), nil
		}
	}
	return Permission{}, NewError(ErrInvalidPermission, "unknown resource "+parts[0])
}

// MustParsePermission is ParsePermission that panics on error.
func MustParsePermission(s string) Permission {
	p, err := ParsePermission(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Allows checks a single permission against the role's entry.
// Unknown roles and malformed permissions are denied.
func (t *Table) Allows(role Role, perm Permission) bool {
	entry, ok := t.Entry(role)
	if !ok {
		return false
	}
	if perm.Action == ActionView {
		return entry.CanView(perm.Page)
	}
	return entry.Allows(perm.Action, perm.Kind)
}

// Grants lists every permission the role holds, views first.
func (t *Table) Grants(role Role) []Permission {
	entry, ok := t.Entry(role)
	if !ok {
		return nil
	}
	var grants []Permission
	for _, p := range entry.Pages() {
		grants = append(grants, ViewPermission(p))
	}
	for _, action := range []Action{ActionCreate, ActionUpdate, ActionDelete} {
		for _, k := range entry.Kinds(action) {
			grants = append(grants, KindPermission(action, k))
		}
	}
	return grants
}

// GrantStrings returns Grants in dotted form.
func (t *Table) GrantStrings(role Role) []string {
	grants := t.Grants(role)
	out := make([]string, len(grants))
	for i, g := range grants {
		out[i] = g.String()
	}
	return out
}
