package agencykit

import (
	"context"
	"sync"

	"github.com/uptrace/bun"

	"github.com/fernandezvara/dbkit"
)

// SeedDataset returns the demo agency: five employees, two clients, three
// projects with members, five tasks, two invoices, three folders and two
// documents. Each call returns fresh slices.
func SeedDataset() *Dataset {
	return &Dataset{
		Employees: []Employee{
			{ID: "emp-1", Name: "Admin User", Email: "admin@company.com", JobTitle: "System Administrator"},
			{ID: "emp-2", Name: "HR Person", Email: "hr@company.com", JobTitle: "Human Resources Manager"},
			{ID: "emp-3", Name: "Sales Rep", Email: "sales@company.com", JobTitle: "Sales Representative"},
			{ID: "emp-4", Name: "Developer One", Email: "dev1@company.com", JobTitle: "Software Engineer"},
			{ID: "emp-5", Name: "Developer Two", Email: "dev2@company.com", JobTitle: "Frontend Developer"},
		},
		Clients: []Client{
			{ID: "cli-1", Name: "John Doe", Email: "john.doe@example.com", Company: "Innovate Inc."},
			{ID: "cli-2", Name: "Jane Smith", Email: "jane.smith@example.com", Company: "Solutions Co."},
		},
		Projects: []Project{
			{ID: "proj-1", Name: "Website Redesign", ClientID: "cli-1", Status: ProjectActive, Deadline: "2024-08-30", MemberIDs: []string{"emp-4", "emp-5"}},
			{ID: "proj-2", Name: "Mobile App Dev", ClientID: "cli-2", Status: ProjectActive, Deadline: "2024-09-15", MemberIDs: []string{"emp-4"}},
			{ID: "proj-3", Name: "Marketing Campaign", ClientID: "cli-1", Status: ProjectCompleted, Deadline: "2024-07-20", MemberIDs: []string{"emp-3"}},
		},
		Tasks: []Task{
			{ID: "task-1", Title: "Design Homepage Mockup", ProjectID: "proj-1", Priority: PriorityHigh, Status: TaskInProgress, DueDate: "2024-07-30", AssigneeID: "emp-5"},
			{ID: "task-2", Title: "Develop Login API", ProjectID: "proj-2", Priority: PriorityHigh, Status: TaskToDo, DueDate: "2024-08-05", AssigneeID: "emp-4"},
			{ID: "task-3", Title: "Setup User Authentication", ProjectID: "proj-2", Priority: PriorityMedium, Status: TaskToDo, DueDate: "2024-08-10", AssigneeID: "emp-4"},
			{ID: "task-4", Title: "Finalize Ad Copy", ProjectID: "proj-3", Priority: PriorityLow, Status: TaskDone, DueDate: "2024-07-15", AssigneeID: "emp-3"},
			{ID: "task-5", Title: "Create Style Guide", ProjectID: "proj-1", Priority: PriorityMedium, Status: TaskToDo, DueDate: "2024-08-02", AssigneeID: "emp-5"},
		},
		Invoices: []Invoice{
			{ID: "inv-1", InvoiceNumber: "INV-001", ProjectID: "proj-3", Amount: 5000, Status: InvoicePaid, IssueDate: "2024-07-21", DueDate: "2024-08-05"},
			{ID: "inv-2", InvoiceNumber: "INV-002", ProjectID: "proj-1", Amount: 2500, Status: InvoiceSent, IssueDate: "2024-07-25", DueDate: "2024-08-10"},
		},
		Folders: []Folder{
			{ID: "folder-1", Name: "Passwords"},
			{ID: "folder-2", Name: "API Keys"},
			{ID: "folder-3", Name: "Meeting Notes"},
		},
		Documents: []Document{
			{ID: "doc-1", Name: "Social Media Logins", FolderID: "folder-1", Content: "Facebook: user / pass\nTwitter: user / pass"},
			{ID: "doc-2", Name: "Project A - Notes", FolderID: "folder-3", Content: "Initial meeting takeaways..."},
		},
	}
}

// SeedPassword is the password of every seeded login.
const SeedPassword = "password"

var seedPasswordHash = sync.OnceValue(func() string {
	hash, err := HashPassword(SeedPassword)
	if err != nil {
		panic(err)
	}
	return hash
})

// SeedUsers returns one login per role plus a second client, all with
// SeedPassword. The hash is computed once per process.
func SeedUsers() []User {
	hash := seedPasswordHash()
	users := []User{
		{ID: "user-1", Username: "admin", Name: "Admin User", Role: RoleAdmin, EntityID: "emp-1"},
		{ID: "user-2", Username: "hr", Name: "HR Person", Role: RoleHR, EntityID: "emp-2"},
		{ID: "user-3", Username: "sales", Name: "Sales Rep", Role: RoleSales, EntityID: "emp-3"},
		{ID: "user-4", Username: "dev", Name: "Developer One", Role: RoleEmployee, EntityID: "emp-4"},
		{ID: "user-5", Username: "johndoe", Name: "John Doe", Role: RoleClient, EntityID: "cli-1"},
		{ID: "user-6", Username: "janesmith", Name: "Jane Smith", Role: RoleClient, EntityID: "cli-2"},
	}
	for i := range users {
		users[i].PasswordHash = hash
	}
	return users
}

// Seed loads ds and users in one transaction, bypassing the access gates.
// It does nothing and returns false when any user already exists.
func (s *Service) Seed(ctx context.Context, ds *Dataset, users []User) (bool, error) {
	exists, err := dbkit.Exists[User](ctx, s.conn(ctx), func(q *bun.SelectQuery) *bun.SelectQuery {
		return q
	})
	if err != nil {
		return false, dbkit.WithErr1(err, "SeedCheck").Err()
	}
	if exists {
		return false, nil
	}

	err = s.Transaction(ctx, func(ctx context.Context) error {
		db := s.conn(ctx)
		if err := batchInsert(ctx, db, ds.Clients, "SeedClients"); err != nil {
			return err
		}
		if err := batchInsert(ctx, db, ds.Employees, "SeedEmployees"); err != nil {
			return err
		}
		if err := batchInsert(ctx, db, ds.Projects, "SeedProjects"); err != nil {
			return err
		}
		if err := batchInsert(ctx, db, ds.Tasks, "SeedTasks"); err != nil {
			return err
		}
		if err := batchInsert(ctx, db, ds.Invoices, "SeedInvoices"); err != nil {
			return err
		}
		if err := batchInsert(ctx, db, ds.Folders, "SeedFolders"); err != nil {
			return err
		}
		if err := batchInsert(ctx, db, ds.Documents, "SeedDocuments"); err != nil {
			return err
		}
		return batchInsert(ctx, db, users, "SeedUsers")
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func batchInsert[T any](ctx context.Context, db dbkit.IDB, rows []T, op string) error {
	if len(rows) == 0 {
		return nil
	}
	models := make([]*T, len(rows))
	for i := range rows {
		models[i] = &rows[i]
	}
	_, err := dbkit.BatchInsert(ctx, db, models, dbkit.BatchSize)
	return dbkit.WithErr1(err, op).Err()
}
