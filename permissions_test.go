package agencykit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParsePermission tests parsing of dotted permissions
func TestParsePermission(t *testing.T) {
	tests := []struct {
		input string
		want  Permission
	}{
		{"invoices.view", ViewPermission(PageInvoices)},
		{"Dashboard.view", ViewPermission(PageDashboard)},
		{"client.create", KindPermission(ActionCreate, KindClient)},
		{"Task.update", KindPermission(ActionUpdate, KindTask)},
		{"employee.DELETE", KindPermission(ActionDelete, KindEmployee)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePermission(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestParsePermissionInvalid tests malformed permissions
func TestParsePermissionInvalid(t *testing.T) {
	for _, input := range []string{
		"",
		"client",
		"client.",
		".create",
		"client.create.extra",
		"client.approve",
		"reports.view",
		"report.create",
		"client.view", // view names a page, not a kind
	} {
		t.Run(input, func(t *testing.T) {
			_, err := ParsePermission(input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPermission))
		})
	}
}

// TestPermissionString tests the dotted form round trip
func TestPermissionString(t *testing.T) {
	assert.Equal(t, "projects.view", ViewPermission(PageProjects).String())
	assert.Equal(t, "task.update", KindPermission(ActionUpdate, KindTask).String())

	for _, role := range AllRoles() {
		for _, grant := range DefaultTable.Grants(role) {
			parsed, err := ParsePermission(grant.String())
			require.NoError(t, err)
			assert.Equal(t, grant, parsed)
		}
	}
}

// TestMustParsePermission tests the panicking variant
func TestMustParsePermission(t *testing.T) {
	assert.Equal(t, KindPermission(ActionCreate, KindInvoice), MustParsePermission("invoice.create"))
	assert.Panics(t, func() { MustParsePermission("invoice") })
}

// TestTableAllows tests single permission checks against the table
func TestTableAllows(t *testing.T) {
	assert.True(t, DefaultTable.Allows(RoleClient, MustParsePermission("invoices.view")))
	assert.False(t, DefaultTable.Allows(RoleSales, MustParsePermission("invoices.view")))
	assert.True(t, DefaultTable.Allows(RoleEmployee, MustParsePermission("task.update")))
	assert.False(t, DefaultTable.Allows(RoleEmployee, MustParsePermission("task.create")))
	assert.False(t, DefaultTable.Allows("Owner", MustParsePermission("dashboard.view")))
	assert.False(t, DefaultTable.Allows(RoleAdmin, Permission{Action: "approve", Kind: KindClient}))
}

// TestTableGrants tests the ordered grant list
func TestTableGrants(t *testing.T) {
	assert.Equal(t, []string{
		"dashboard.view", "clients.view", "projects.view",
		"client.create", "client.update",
	}, DefaultTable.GrantStrings(RoleSales))

	assert.Equal(t, []string{
		"dashboard.view", "projects.view", "tasks.view", "invoices.view",
	}, DefaultTable.GrantStrings(RoleClient))

	assert.Nil(t, DefaultTable.Grants("Owner"))
	assert.Len(t, DefaultTable.Grants(RoleAdmin), len(AllPages())+3*len(AllResourceKinds()))
}

// TestActionIsValid tests action validation
func TestActionIsValid(t *testing.T) {
	for _, a := range []Action{ActionView, ActionCreate, ActionUpdate, ActionDelete} {
		assert.True(t, a.IsValid())
	}
	assert.False(t, Action("approve").IsValid())
	assert.False(t, Action("").IsValid())
}
