// internal/app/system/workers/reconciler.go
package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	collectionstore "github.com/dalemusser/storefront/internal/app/store/collections"
	"github.com/dalemusser/storefront/internal/app/store/oauthstate"
	orderstore "github.com/dalemusser/storefront/internal/app/store/orders"
	productstore "github.com/dalemusser/storefront/internal/app/store/products"
	reviewstore "github.com/dalemusser/storefront/internal/app/store/reviews"
	"github.com/dalemusser/storefront/internal/app/system/metrics"
	"github.com/dalemusser/storefront/internal/app/system/ratings"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultSchedule runs the reconciler hourly.
const DefaultSchedule = "@every 1h"

// Report summarises one reconciler pass.
type Report struct {
	RatingsRecomputed   int   `json:"ratings_recomputed"`
	CollectionsRepaired int   `json:"collections_repaired"`
	OrdersCancelled     int64 `json:"orders_cancelled"`
	StatesRemoved       int64 `json:"oauth_states_removed"`
}

// Reconciler repairs derived data that a partial multi-document write can
// leave behind on deployments without transactions:
//   - Product.rating is recomputed from reviews
//   - Collection.products is rebuilt from Product.collections
//
// It also cancels pending orders older than PendingTTL and removes expired
// OAuth states.
type Reconciler struct {
	products    *productstore.Store
	collections *collectionstore.Store
	reviews     *reviewstore.Store
	orders      *orderstore.Store
	states      *oauthstate.Store
	log         *zap.Logger

	schedule   string
	pendingTTL time.Duration
	timeout    time.Duration
	now        func() time.Time

	mu   sync.Mutex // one pass at a time
	cron *cron.Cron
}

// NewReconciler creates a reconciler over db. A zero pendingTTL disables the
// stale-order sweep; an empty schedule uses DefaultSchedule.
func NewReconciler(db *mongo.Database, logger *zap.Logger, schedule string, pendingTTL time.Duration) *Reconciler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Reconciler{
		products:    productstore.New(db),
		collections: collectionstore.New(db),
		reviews:     reviewstore.New(db),
		orders:      orderstore.New(db),
		states:      oauthstate.New(db),
		log:         logger,
		schedule:    schedule,
		pendingTTL:  pendingTTL,
		timeout:     5 * time.Minute,
		now:         time.Now,
	}
}

// Start schedules the reconciler. It returns an error for a bad cron spec.
func (w *Reconciler) Start() error {
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger{w.log}),
		cron.SkipIfStillRunning(cronLogger{w.log}),
	))
	if _, err := c.AddFunc(w.schedule, w.tick); err != nil {
		return fmt.Errorf("reconciler schedule %q: %w", w.schedule, err)
	}
	w.cron = c
	c.Start()
	w.log.Info("reconciler started",
		zap.String("schedule", w.schedule),
		zap.Duration("pending_order_ttl", w.pendingTTL))
	return nil
}

// Stop stops scheduling and waits for a running pass to finish or ctx to end.
func (w *Reconciler) Stop(ctx context.Context) {
	if w.cron == nil {
		return
	}
	select {
	case <-w.cron.Stop().Done():
	case <-ctx.Done():
	}
	w.log.Info("reconciler stopped")
}

func (w *Reconciler) tick() {
	ctx, cancel := timeouts.WithTimeout(context.Background(), w.timeout, w.log, "reconcile")
	defer cancel()
	if _, err := w.RunOnce(ctx); err != nil {
		w.log.Error("reconcile pass failed", zap.Error(err))
	}
}

// RunOnce performs a full pass. Each step runs even if an earlier one failed;
// the first error is returned.
func (w *Reconciler) RunOnce(ctx context.Context) (Report, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := w.now()
	var rep Report
	var firstErr error
	keep := func(step string, err error) {
		if err == nil {
			return
		}
		w.log.Warn("reconcile step failed", zap.String("step", step), zap.Error(err))
		if firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", step, err)
		}
	}

	n, err := w.RecomputeRatings(ctx)
	rep.RatingsRecomputed = n
	keep("ratings", err)

	n, err = w.rebuildMembership(ctx)
	rep.CollectionsRepaired = n
	keep("membership", err)

	if w.pendingTTL > 0 {
		rep.OrdersCancelled, err = w.orders.CancelStalePending(ctx, start.Add(-w.pendingTTL))
		keep("stale orders", err)
	}

	rep.StatesRemoved, err = w.states.CleanupExpired(ctx)
	keep("oauth states", err)

	status := "ok"
	if firstErr != nil {
		status = "error"
	}
	metrics.ReconcileRuns.WithLabelValues(status).Inc()

	w.log.Info("reconcile pass complete",
		zap.Int("ratings_recomputed", rep.RatingsRecomputed),
		zap.Int("collections_repaired", rep.CollectionsRepaired),
		zap.Int64("orders_cancelled", rep.OrdersCancelled),
		zap.Int64("oauth_states_removed", rep.StatesRemoved),
		zap.Duration("took", w.now().Sub(start)))
	return rep, firstErr
}

// RecomputeRatings rewrites the rating of every product from its reviews.
func (w *Reconciler) RecomputeRatings(ctx context.Context) (int, error) {
	ids, err := w.products.AllIDs(ctx)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, id := range ids {
		if _, err := ratings.Recompute(ctx, w.reviews, w.products, id); err != nil {
			return done, fmt.Errorf("product %s: %w", id.Hex(), err)
		}
		done++
	}
	return done, nil
}

// rebuildMembership sets each collection's products array from the product
// side and returns how many collections changed.
func (w *Reconciler) rebuildMembership(ctx context.Context) (int, error) {
	colls, err := w.collections.List(ctx)
	if err != nil {
		return 0, err
	}
	repaired := 0
	for _, c := range colls {
		ids, err := w.products.IDsInCollection(ctx, c.ID)
		if err != nil {
			return repaired, err
		}
		if sameMembers(c.Products, ids) {
			continue
		}
		if _, err := w.collections.SetProducts(ctx, c.ID, ids); err != nil {
			return repaired, err
		}
		w.log.Info("collection membership repaired",
			zap.String("collection_id", c.ID.Hex()),
			zap.Int("before", len(c.Products)),
			zap.Int("after", len(ids)))
		repaired++
	}
	return repaired, nil
}
