package agencykit

import (
	"context"
	"fmt"

	"github.com/fernandezvara/dbkit"
)

// Migrations returns the schema for every agency table.
// Run them with Migrate or dbkit's db.Migrate(ctx, service.Migrations()).
func (s *Service) Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "agencykit-001",
			Description: "Create clients and employees tables",
			SQL: `
                CREATE TABLE IF NOT EXISTS clients (
                    id TEXT PRIMARY KEY,
                    name TEXT NOT NULL,
                    email TEXT NOT NULL,
                    company TEXT,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                );
                CREATE TABLE IF NOT EXISTS employees (
                    id TEXT PRIMARY KEY,
                    name TEXT NOT NULL,
                    email TEXT NOT NULL,
                    job_title TEXT,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "agencykit-002",
			Description: "Create projects, tasks and invoices tables",
			SQL: `
                CREATE TABLE IF NOT EXISTS projects (
                    id TEXT PRIMARY KEY,
                    name TEXT NOT NULL,
                    client_id TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
                    status TEXT NOT NULL,
                    deadline TEXT,
                    member_ids TEXT[] DEFAULT '{}',
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                );
                CREATE INDEX IF NOT EXISTS idx_projects_client ON projects(client_id);
                CREATE TABLE IF NOT EXISTS tasks (
                    id TEXT PRIMARY KEY,
                    title TEXT NOT NULL,
                    project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
                    priority TEXT NOT NULL,
                    status TEXT NOT NULL,
                    due_date TEXT,
                    assignee_id TEXT,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                );
                CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
                CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assignee_id);
                CREATE TABLE IF NOT EXISTS invoices (
                    id TEXT PRIMARY KEY,
                    invoice_number TEXT NOT NULL,
                    project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
                    amount DOUBLE PRECISION NOT NULL,
                    status TEXT NOT NULL,
                    issue_date TEXT,
                    due_date TEXT,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                );
                CREATE INDEX IF NOT EXISTS idx_invoices_project ON invoices(project_id)`,
		},
		{
			ID:          "agencykit-003",
			Description: "Create folders and documents tables",
			SQL: `
                CREATE TABLE IF NOT EXISTS folders (
                    id TEXT PRIMARY KEY,
                    name TEXT NOT NULL,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                );
                CREATE TABLE IF NOT EXISTS documents (
                    id TEXT PRIMARY KEY,
                    name TEXT NOT NULL,
                    content TEXT,
                    folder_id TEXT NOT NULL REFERENCES folders(id) ON DELETE CASCADE,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "agencykit-004",
			Description: "Create users table",
			SQL: `
                CREATE TABLE IF NOT EXISTS users (
                    id TEXT PRIMARY KEY,
                    username TEXT NOT NULL UNIQUE,
                    name TEXT NOT NULL,
                    role TEXT NOT NULL,
                    entity_id TEXT NOT NULL,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "agencykit-005",
			Description: "Create access_audit_log table",
			SQL: `
                CREATE TABLE IF NOT EXISTS access_audit_log (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    timestamp TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    actor_id TEXT NOT NULL,
                    actor_role TEXT NOT NULL,
                    entity_id TEXT,
                    action TEXT NOT NULL,
                    kind TEXT NOT NULL,
                    record_id TEXT,
                    outcome TEXT NOT NULL,
                    ip_address TEXT,
                    user_agent TEXT,
                    request_id TEXT,
                    metadata JSONB
                );
                CREATE INDEX IF NOT EXISTS idx_access_audit_actor ON access_audit_log(actor_id, timestamp DESC)`,
		},
		{
			ID:          "agencykit-006",
			Description: "Add password hashes to users",
			SQL: `
                ALTER TABLE users ADD COLUMN IF NOT EXISTS password_hash TEXT NOT NULL DEFAULT ''`,
		},
	}
}

// Migrate applies pending migrations and returns the IDs it applied.
// It needs the service to hold a *dbkit.DBKit.
func (s *Service) Migrate(ctx context.Context) ([]string, error) {
	db, ok := s.db.(*dbkit.DBKit)
	if !ok {
		return nil, fmt.Errorf("migrations require a dbkit.DBKit instance")
	}
	result, err := db.Migrate(ctx, s.Migrations())
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	applied := make([]string, 0, len(result.Applied))
	for _, m := range result.Applied {
		applied = append(applied, m.ID)
	}
	return applied, nil
}
