package agencykit

// Row scoping narrows a collection to the rows an actor may see. It is the
// second gate after the permission table: the table answers what a role may
// do in general, scoping answers which rows it may do it to.
//
// Every function here is a stable filter. It never reorders, always returns
// a non-nil slice and returns an empty slice for any role without an
// explicit branch. Rows whose ownership reference cannot be resolved are
// excluded.

// filterRows keeps the rows for which keep returns true, in input order.
func filterRows[T any](rows []T, keep func(T) bool) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func allRows[T any](rows []T) []T {
	out := make([]T, len(rows))
	copy(out, rows)
	return out
}

func unrestricted(actor *Actor) bool {
	switch actor.Role {
	case RoleAdmin, RoleSales, RoleHR:
		return true
	}
	return false
}

// ScopeClients returns the clients visible to the actor.
// Admin, Sales and HR see every client; no other role sees any.
func ScopeClients(actor *Actor, clients []Client) []Client {
	if actor == nil || !unrestricted(actor) {
		return []Client{}
	}
	return allRows(clients)
}

// ScopeProjects returns the projects visible to the actor.
//
// Admin, Sales and HR see all. A Client sees the projects it owns. An
// Employee sees the projects it is a member of.
func ScopeProjects(actor *Actor, projects []Project) []Project {
	if actor == nil {
		return []Project{}
	}
	if unrestricted(actor) {
		return allRows(projects)
	}
	if actor.EntityID == "" {
		return []Project{}
	}
	switch actor.Role {
	case RoleClient:
		return filterRows(projects, func(p Project) bool {
			return p.ClientID == actor.EntityID
		})
	case RoleEmployee:
		return filterRows(projects, func(p Project) bool {
			return p.HasMember(actor.EntityID)
		})
	}
	return []Project{}
}

// VisibleProjectIDs returns the IDs of the projects ScopeProjects would keep.
func VisibleProjectIDs(actor *Actor, projects []Project) map[string]struct{} {
	visible := ScopeProjects(actor, projects)
	ids := make(map[string]struct{}, len(visible))
	for _, p := range visible {
		ids[p.ID] = struct{}{}
	}
	return ids
}

// ScopeTasks returns the tasks visible to the actor.
//
// Admin, Sales and HR see all. A Client sees tasks belonging to its visible
// projects. An Employee sees only tasks assigned to it; membership of the
// task's project is not enough.
func ScopeTasks(actor *Actor, tasks []Task, projects []Project) []Task {
	if actor == nil {
		return []Task{}
	}
	if unrestricted(actor) {
		return allRows(tasks)
	}
	if actor.EntityID == "" {
		return []Task{}
	}
	switch actor.Role {
	case RoleClient:
		ids := VisibleProjectIDs(actor, projects)
		return filterRows(tasks, func(t Task) bool {
			_, ok := ids[t.ProjectID]
			return ok
		})
	case RoleEmployee:
		return filterRows(tasks, func(t Task) bool {
			return t.AssigneeID == actor.EntityID
		})
	}
	return []Task{}
}

// ScopeInvoices returns the invoices visible to the actor.
//
// Admin sees all. A Client sees invoices belonging to its visible projects.
// HR, Sales and Employee see none, even though the page gate already keeps
// them away from invoices.
func ScopeInvoices(actor *Actor, invoices []Invoice, projects []Project) []Invoice {
	if actor == nil {
		return []Invoice{}
	}
	switch actor.Role {
	case RoleAdmin:
		return allRows(invoices)
	case RoleClient:
		if actor.EntityID == "" {
			return []Invoice{}
		}
		ids := VisibleProjectIDs(actor, projects)
		return filterRows(invoices, func(i Invoice) bool {
			_, ok := ids[i.ProjectID]
			return ok
		})
	case RoleHR, RoleSales, RoleEmployee:
		return []Invoice{}
	}
	return []Invoice{}
}

// ScopeEmployees has no row rule: the Employees page decides.
func (t *Table) ScopeEmployees(actor *Actor, employees []Employee) []Employee {
	if !t.CanViewPage(actor, PageEmployees) {
		return []Employee{}
	}
	return allRows(employees)
}

// ScopeFolders has no row rule: the Documents page decides.
func (t *Table) ScopeFolders(actor *Actor, folders []Folder) []Folder {
	if !t.CanViewPage(actor, PageDocuments) {
		return []Folder{}
	}
	return allRows(folders)
}

// ScopeDocuments has no row rule: the Documents page decides.
func (t *Table) ScopeDocuments(actor *Actor, docs []Document) []Document {
	if !t.CanViewPage(actor, PageDocuments) {
		return []Document{}
	}
	return allRows(docs)
}

// ScopeEmployees scopes employees against DefaultTable.
func ScopeEmployees(actor *Actor, employees []Employee) []Employee {
	return DefaultTable.ScopeEmployees(actor, employees)
}

// ScopeFolders scopes folders against DefaultTable.
func ScopeFolders(actor *Actor, folders []Folder) []Folder {
	return DefaultTable.ScopeFolders(actor, folders)
}

// ScopeDocuments scopes documents against DefaultTable.
func ScopeDocuments(actor *Actor, docs []Document) []Document {
	return DefaultTable.ScopeDocuments(actor, docs)
}

// AssignableProjects returns the projects a task may be attached to when
// the actor creates or edits one. Admin may use any project; other roles
// only projects they are a member of or own.
func AssignableProjects(actor *Actor, projects []Project) []Project {
	if actor == nil {
		return []Project{}
	}
	if actor.Role == RoleAdmin {
		return allRows(projects)
	}
	if actor.EntityID == "" {
		return []Project{}
	}
	return filterRows(projects, func(p Project) bool {
		return p.HasMember(actor.EntityID) || p.ClientID == actor.EntityID
	})
}

// Dataset is a full snapshot of every collection, as loaded by a store.
type Dataset struct {
	Clients   []Client   `json:"clients"`
	Employees []Employee `json:"employees"`
	Projects  []Project  `json:"projects"`
	Tasks     []Task     `json:"tasks"`
	Invoices  []Invoice  `json:"invoices"`
	Folders   []Folder   `json:"folders"`
	Documents []Document `json:"documents"`
}

// ScopeDataset applies every scope function to ds. Ownership of tasks and
// invoices is resolved against the unscoped project list. The page-gated
// collections follow t.
func (t *Table) ScopeDataset(actor *Actor, ds *Dataset) *Dataset {
	if ds == nil {
		ds = &Dataset{}
	}
	return &Dataset{
		Clients:   ScopeClients(actor, ds.Clients),
		Employees: t.ScopeEmployees(actor, ds.Employees),
		Projects:  ScopeProjects(actor, ds.Projects),
		Tasks:     ScopeTasks(actor, ds.Tasks, ds.Projects),
		Invoices:  ScopeInvoices(actor, ds.Invoices, ds.Projects),
		Folders:   t.ScopeFolders(actor, ds.Folders),
		Documents: t.ScopeDocuments(actor, ds.Documents),
	}
}

// ScopeDataset scopes ds against DefaultTable.
func ScopeDataset(actor *Actor, ds *Dataset) *Dataset {
	return DefaultTable.ScopeDataset(actor, ds)
}

// CanSee reports whether a single record passes the visibility gate.
// projects is only consulted for tasks and invoices.
func (t *Table) CanSee(actor *Actor, rec Record, projects []Project) bool {
	switch r := rec.(type) {
	case *Client:
		return len(ScopeClients(actor, []Client{*r})) == 1
	case *Employee:
		return len(t.ScopeEmployees(actor, []Employee{*r})) == 1
	case *Project:
		return len(ScopeProjects(actor, []Project{*r})) == 1
	case *Task:
		return len(ScopeTasks(actor, []Task{*r}, projects)) == 1
	case *Invoice:
		return len(ScopeInvoices(actor, []Invoice{*r}, projects)) == 1
	case *Folder:
		return len(t.ScopeFolders(actor, []Folder{*r})) == 1
	case *Document:
		return len(t.ScopeDocuments(actor, []Document{*r})) == 1
	}
	return false
}

// CanSee checks visibility against DefaultTable.
func CanSee(actor *Actor, rec Record, projects []Project) bool {
	return DefaultTable.CanSee(actor, rec, projects)
}
