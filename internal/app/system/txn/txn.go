// Package txn runs multi-document writes inside a MongoDB transaction when the
// deployment supports one, and falls back to sequential writes when it does not
// (standalone servers, some DocumentDB versions).
//
// Without a transaction a crash between writes can leave derived data stale
// (product ratings, collection membership). workers.Reconciler repairs that
// drift on a schedule.
package txn

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// unsupported flips to true the first time the server rejects transactions so
// later calls skip straight to the fallback.
var unsupported atomic.Bool

// Run executes fn inside a transaction. fn must use the ctx it receives.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	if unsupported.Load() {
		return fn(ctx)
	}

	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			markUnsupported(log, err)
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		markUnsupported(log, err)
		return fn(ctx)
	}
	return err
}

// Reset clears the cached "unsupported" decision. Used by tests.
func Reset() { unsupported.Store(false) }

func markUnsupported(log *zap.Logger, err error) {
	if unsupported.CompareAndSwap(false, true) && log != nil {
		log.Warn("transactions not supported; running multi-document writes sequentially", zap.Error(err))
	}
}

// IsNotSupported reports whether err means the server cannot run a transaction.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263: // IllegalOperation, various "not a replica set" codes
			return true
		}
	}
	s := strings.ToLower(err.Error())
	hasTxn := strings.Contains(s, "transaction")
	return (hasTxn && strings.Contains(s, "replica set")) ||
		(hasTxn && strings.Contains(s, "session")) ||
		(strings.Contains(s, "session") && strings.Contains(s, "not supported")) ||
		(hasTxn && strings.Contains(s, "illegal operation"))
}
