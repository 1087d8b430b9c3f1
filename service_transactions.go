package agencykit

import (
	"context"
	"fmt"
	"time"

	"github.com/fernandezvara/dbkit"
)

type txKey struct{}

// conn returns the transaction carried by ctx, or the service handle.
func (s *Service) conn(ctx context.Context) dbkit.IDB {
	if tx, ok := ctx.Value(txKey{}).(*dbkit.Tx); ok {
		return tx
	}
	return s.db
}

// Transaction executes fn within a database transaction with automatic
// commit/rollback. Service calls made with the ctx passed to fn join the
// transaction; nested calls use a savepoint.
//
// Example:
//
//	err := service.Transaction(ctx, func(ctx context.Context) error {
//	    if err := service.Create(ctx, project); err != nil {
//	        return err // rolls back
//	    }
//	    return service.Create(ctx, task)
//	})
func (s *Service) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.runTx(ctx, nil, fn)
}

// TransactionWithOptions is Transaction with explicit options such as
// read-only or an isolation level. Options are ignored for nested calls.
func (s *Service) TransactionWithOptions(ctx context.Context, opts dbkit.TxOptions, fn func(ctx context.Context) error) error {
	return s.runTx(ctx, &opts, fn)
}

func (s *Service) runTx(ctx context.Context, opts *dbkit.TxOptions, fn func(ctx context.Context) error) error {
	start := time.Now()
	inTx := func(tx *dbkit.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	}
	var err error

	switch db := s.conn(ctx).(type) {
	case *dbkit.Tx:
		err = db.Transaction(ctx, inTx)
	case *dbkit.DBKit:
		if opts == nil {
			err = db.Transaction(ctx, inTx)
		} else {
			err = db.TransactionWithOptions(ctx, *opts, inTx)
		}
	default:
		err = fmt.Errorf("transaction support requires a dbkit.DBKit or dbkit.Tx instance")
	}

	s.metrics.ObserveTransaction(time.Since(start), err == nil)
	return err
}

// ReadOnlyTransaction executes fn within a read-only transaction.
func (s *Service) ReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.TransactionWithOptions(ctx, dbkit.ReadOnlyTxOptions(), fn)
}
