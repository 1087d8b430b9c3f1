package agencykit

import (
	"context"

	"go.uber.org/zap"

	"github.com/fernandezvara/dbkit"
)

// Service is the Postgres-backed Repository. It stores the agency records
// through dbkit and bun and enforces the permission table on every write.
//
// Error Handling:
// Database failures are wrapped with dbkit's chainable error helpers so the
// operation name and constraint survive. Access failures are *Error values
// wrapping ErrUnauthorized, ErrNoActor or ErrNotFound.
//
//	err := service.Update(agencykit.WithActor(ctx, actor), task)
//	switch {
//	case agencykit.IsNotFound(err):
//	    // missing, or not visible to this actor
//	case agencykit.IsUnauthorized(err):
//	    // role lacks the capability
//	case dbkit.IsDuplicate(err):
//	    // unique constraint
//	}
type Service struct {
	db      dbkit.IDB
	table   *Table
	logger  *zap.Logger
	metrics *Metrics
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithServiceTable replaces DefaultTable. Intended for tests.
func WithServiceTable(t *Table) ServiceOption {
	return func(s *Service) {
		s.table = t
	}
}

// WithServiceLogger sets the logger used for audit write failures.
func WithServiceLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// WithServiceMetrics records writes and transactions.
func WithServiceMetrics(m *Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a new Service.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := agencykit.NewService(db, agencykit.WithServiceLogger(logger))
//	if _, err := service.Migrate(ctx); err != nil { ... }
func NewService(db dbkit.IDB, opts ...ServiceOption) *Service {
	s := &Service{
		db:     db,
		table:  DefaultTable,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Table returns the permission table the service enforces.
func (s *Service) Table() *Table {
	return s.table
}

// Metrics returns the metrics sink, which may be nil.
func (s *Service) Metrics() *Metrics {
	return s.metrics
}

// Health performs a comprehensive health check of the database connection.
func (s *Service) Health(ctx context.Context) dbkit.HealthStatus {
	if db, ok := s.db.(*dbkit.DBKit); ok {
		return db.Health(ctx)
	}
	return dbkit.HealthStatus{
		Healthy: s.IsHealthy(ctx),
		Error:   "Limited health check - not a DBKit instance",
	}
}

// IsHealthy reports whether the database is reachable.
func (s *Service) IsHealthy(ctx context.Context) bool {
	if db, ok := s.db.(*dbkit.DBKit); ok {
		return db.IsHealthy(ctx)
	}
	var one int
	return s.db.NewRaw("SELECT 1").Scan(ctx, &one) == nil
}

// PoolStats returns connection pool statistics, or zero values when the
// handle is not a *dbkit.DBKit.
func (s *Service) PoolStats() dbkit.PoolStats {
	if db, ok := s.db.(*dbkit.DBKit); ok {
		return dbkit.PoolStatsFromSQL(db.Stats())
	}
	return dbkit.PoolStats{}
}
