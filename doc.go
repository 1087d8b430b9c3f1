// Package agencykit provides role-based access control for a small agency
// application: clients, employees, projects, tasks, invoices and documents.
//
// Access is decided in two independent layers.
//
// The capability gate is a fixed permission table. Each of the five roles
// (Admin, HR, Sales, Employee, Client) has a set of viewable pages and, per
// action, a set of resource kinds it may create, update or delete. The table
// is total: a role without an entry is a build error, and "no permission" is
// an empty set rather than a missing key.
//
// The visibility gate is row scoping. Every actor carries an entity
// reference, a Client record for the Client role and an Employee record for
// everyone else, and the Scope functions narrow each collection to the rows
// that entity owns or is assigned to.
//
// # Core Concepts
//
// Actor: the authenticated identity, a Role plus an EntityID.
//
// Page: a top-level view such as "/clients". Navigation is gated per page.
//
// ResourceKind: Client, Project, Task, Invoice, Document or Employee. Writes
// are gated per kind.
//
// Permission: a dotted string such as "invoices.view" or "task.update".
//
// # Basic Usage
//
//	actor := agencykit.NewActor("user-4", agencykit.RoleEmployee, "emp-4")
//
//	agencykit.CanViewPage(actor, agencykit.PageTasks)   // true
//	agencykit.CanUpdate(actor, agencykit.KindTask)      // true, for any task
//	agencykit.CanDelete(actor, agencykit.KindTask)      // false
//
//	// Only the tasks assigned to emp-4 remain.
//	mine := agencykit.ScopeTasks(actor, allTasks, allProjects)
//
// CanUpdate answers for the role. Which task an Employee may actually
// update is decided by scoping: stores refuse writes to rows outside the
// actor's scope with ErrNotFound.
//
// # Stores
//
// Service persists records in Postgres through dbkit and bun; MemoryStore
// keeps them in process. Both implement Repository and apply the
// capability gate, then the visibility gate, on every write, recording each
// decision in an access audit log.
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := agencykit.NewService(db)
//	service.Migrate(ctx)
//
//	ctx = agencykit.WithActor(ctx, actor)
//	err := service.Update(ctx, &task) // ErrNotFound unless task is assigned to actor
//
// # HTTP
//
// Middleware resolves the actor (see BearerActor), redirects navigation to
// pages the actor may not view back to the dashboard (GuardPage), and
// rejects API calls lacking a capability with 403 (RequireView,
// RequireCreate, RequireUpdate, RequireDelete).
package agencykit
