package agencykit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// Repository is the gated store used by the HTTP layer. Writes take the
// acting user from the context (see WithActor) and apply the capability
// gate and then the visibility gate. Snapshot returns unscoped data;
// callers narrow it with ScopeDataset.
//
// Both *Service and *MemoryStore implement it.
type Repository interface {
	Snapshot(ctx context.Context) (*Dataset, error)
	Create(ctx context.Context, rec Record) error
	Update(ctx context.Context, rec Record) error
	Delete(ctx context.Context, rec Record) error
	UserByID(ctx context.Context, id string) (*User, error)
	UserByUsername(ctx context.Context, username string) (*User, error)
	IsHealthy(ctx context.Context) bool
}

// TransactionManager defines the transaction management interface
type TransactionManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
	TransactionWithOptions(ctx context.Context, opts dbkit.TxOptions, fn func(ctx context.Context) error) error
	ReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// MigrationManager defines the migration management interface
type MigrationManager interface {
	Migrations() []dbkit.Migration
	Migrate(ctx context.Context) ([]string, error)
}

// HealthMonitor defines the health monitoring interface
type HealthMonitor interface {
	Health(ctx context.Context) dbkit.HealthStatus
	IsHealthy(ctx context.Context) bool
	PoolStats() dbkit.PoolStats
}

// AuditReader reads the access audit log.
type AuditReader interface {
	GetAuditLog(ctx context.Context, filter AuditLogFilter) ([]AccessAuditLog, error)
}

// UserLookup finds a login by username.
type UserLookup interface {
	UserByUsername(ctx context.Context, username string) (*User, error)
}

// RoleAssigner changes the role and entity reference of a login.
type RoleAssigner interface {
	AssignRole(ctx context.Context, userID string, role Role, entityID string) (*User, error)
}

var (
	_ RoleAssigner       = (*Service)(nil)
	_ RoleAssigner       = (*MemoryStore)(nil)
	_ Repository         = (*Service)(nil)
	_ Repository         = (*MemoryStore)(nil)
	_ TransactionManager = (*Service)(nil)
	_ MigrationManager   = (*Service)(nil)
	_ HealthMonitor      = (*Service)(nil)
	_ AuditReader        = (*Service)(nil)
	_ AuditReader        = (*MemoryStore)(nil)
	_ UserLookup         = (*Service)(nil)
	_ UserLookup         = (*MemoryStore)(nil)
)
