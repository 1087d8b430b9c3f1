package agencykit

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fernandezvara/dbkit"
)

// PoolConfig holds connection pool limits. Zero fields keep the driver's
// current setting.
type PoolConfig struct {
	MaxOpenConnections    int
	MaxIdleConnections    int
	ConnectionMaxLifetime time.Duration
	ConnectionMaxIdleTime time.Duration
}

// DefaultPoolConfig returns limits suited to a single agencyd instance.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConnections:    20,
		MaxIdleConnections:    5,
		ConnectionMaxLifetime: 30 * time.Minute,
		ConnectionMaxIdleTime: 5 * time.Minute,
	}
}

// ConfigurePool applies cfg to the underlying database pool. It requires
// the Service to hold a *dbkit.DBKit rather than a transaction.
func (s *Service) ConfigurePool(cfg PoolConfig) error {
	db, ok := s.db.(*dbkit.DBKit)
	if !ok {
		return NewError(ErrDatabaseError, "connection pool configuration requires a dbkit.DBKit instance")
	}
	bunDB := db.Bun()
	if bunDB == nil {
		return NewError(ErrDatabaseError, "database instance not available")
	}
	if cfg.MaxIdleConnections > cfg.MaxOpenConnections && cfg.MaxOpenConnections > 0 {
		return NewError(ErrDatabaseError, fmt.Sprintf("max idle connections %d exceed max open %d",
			cfg.MaxIdleConnections, cfg.MaxOpenConnections))
	}

	if cfg.MaxOpenConnections > 0 {
		bunDB.SetMaxOpenConns(cfg.MaxOpenConnections)
	}
	if cfg.MaxIdleConnections > 0 {
		bunDB.SetMaxIdleConns(cfg.MaxIdleConnections)
	}
	if cfg.ConnectionMaxLifetime > 0 {
		bunDB.SetConnMaxLifetime(cfg.ConnectionMaxLifetime)
	}
	if cfg.ConnectionMaxIdleTime > 0 {
		bunDB.SetConnMaxIdleTime(cfg.ConnectionMaxIdleTime)
	}

	s.logger.Info("connection pool configured",
		zap.Int("max_open", cfg.MaxOpenConnections),
		zap.Int("max_idle", cfg.MaxIdleConnections),
		zap.Duration("max_lifetime", cfg.ConnectionMaxLifetime),
		zap.Duration("max_idle_time", cfg.ConnectionMaxIdleTime))
	return nil
}
