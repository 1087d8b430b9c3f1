package agencykit

// CanViewPage reports whether the actor may open the page.
// A nil actor, an unknown role or an unknown page yields false.
func (t *Table) CanViewPage(actor *Actor, page Page) bool {
	if actor == nil {
		return false
	}
	entry, ok := t.Entry(actor.Role)
	if !ok {
		return false
	}
	return entry.CanView(page)
}

// CanCreate reports whether the actor's role may create records of kind.
func (t *Table) CanCreate(actor *Actor, kind ResourceKind) bool {
	return t.can(actor, ActionCreate, kind)
}

// CanUpdate reports whether the actor's role may update records of kind.
//
// This is a role-level answer only. Which rows the actor may touch is
// decided separately by the Scope functions.
func (t *Table) CanUpdate(actor *Actor, kind ResourceKind) bool {
	return t.can(actor, ActionUpdate, kind)
}

// CanDelete reports whether the actor's role may delete records of kind.
func (t *Table) CanDelete(actor *Actor, kind ResourceKind) bool {
	return t.can(actor, ActionDelete, kind)
}

// Can answers CanCreate, CanUpdate or CanDelete by action.
func (t *Table) Can(actor *Actor, action Action, kind ResourceKind) bool {
	return t.can(actor, action, kind)
}

func (t *Table) can(actor *Actor, action Action, kind ResourceKind) bool {
	if actor == nil {
		return false
	}
	entry, ok := t.Entry(actor.Role)
	if !ok {
		return false
	}
	return entry.Allows(action, kind)
}

// CanViewPage checks a page against DefaultTable.
func CanViewPage(actor *Actor, page Page) bool {
	return DefaultTable.CanViewPage(actor, page)
}

// CanCreate checks a create capability against DefaultTable.
func CanCreate(actor *Actor, kind ResourceKind) bool {
	return DefaultTable.CanCreate(actor, kind)
}

// CanUpdate checks an update capability against DefaultTable.
func CanUpdate(actor *Actor, kind ResourceKind) bool {
	return DefaultTable.CanUpdate(actor, kind)
}

// CanDelete checks a delete capability against DefaultTable.
func CanDelete(actor *Actor, kind ResourceKind) bool {
	return DefaultTable.CanDelete(actor, kind)
}

// Checker binds an actor to a table so handlers can ask questions without
// passing both around. It is typically created by Middleware and stored in
// the request context.
type Checker struct {
	actor *Actor
	table *Table
}

// NewChecker creates a Checker. A nil table means DefaultTable.
func NewChecker(actor *Actor, table *Table) *Checker {
	if table == nil {
		table = DefaultTable
	}
	return &Checker{actor: actor, table: table}
}

// Actor returns the actor this checker is for.
func (c *Checker) Actor() *Actor {
	return c.actor
}

// CanViewPage reports whether the actor may open the page.
func (c *Checker) CanViewPage(page Page) bool {
	return c.table.CanViewPage(c.actor, page)
}

// CanCreate reports whether the actor may create records of kind.
func (c *Checker) CanCreate(kind ResourceKind) bool {
	return c.table.CanCreate(c.actor, kind)
}

// CanUpdate reports whether the actor may update records of kind.
func (c *Checker) CanUpdate(kind ResourceKind) bool {
	return c.table.CanUpdate(c.actor, kind)
}

// CanDelete reports whether the actor may delete records of kind.
func (c *Checker) CanDelete(kind ResourceKind) bool {
	return c.table.CanDelete(c.actor, kind)
}

// HasPermission checks a parsed permission.
func (c *Checker) HasPermission(perm Permission) bool {
	if c.actor == nil {
		return false
	}
	return c.table.Allows(c.actor.Role, perm)
}

// VisiblePages returns the pages the actor may open, in navigation order.
func (c *Checker) VisiblePages() []Page {
	if c.actor == nil {
		return []Page{}
	}
	entry, ok := c.table.Entry(c.actor.Role)
	if !ok {
		return []Page{}
	}
	return entry.Pages()
}

// Grants returns every permission the actor holds in dotted form.
func (c *Checker) Grants() []string {
	if c.actor == nil {
		return []string{}
	}
	grants := c.table.GrantStrings(c.actor.Role)
	if grants == nil {
		return []string{}
	}
	return grants
}

// LandingPage returns where navigation should go when page is not allowed:
// the page itself when visible, otherwise the dashboard.
func (c *Checker) LandingPage(page Page) Page {
	if c.CanViewPage(page) {
		return page
	}
	return PageDashboard
}
