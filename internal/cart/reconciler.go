package cart

import (
	"context"
	"time"

	"paloma-store/internal/generation"
	"paloma-store/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ProductSource returns the authoritative records for a set of product ids.
// Ids with no record are simply absent from the result.
type ProductSource interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error)
}

// Reconciler re-validates carts against the product store.
//
// The read of the cart and the write of the reconciled cart are not atomic
// with respect to Add or Remove on the same session: a concurrent mutation
// between the two may be overwritten (last writer wins).
type Reconciler struct {
	products ProductSource
	tracker  *generation.Tracker
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewReconciler creates a reconciler. A non-positive timeout disables the bound.
func NewReconciler(products ProductSource, tracker *generation.Tracker, timeout time.Duration, logger zerolog.Logger) *Reconciler {
	if tracker == nil {
		tracker = generation.NewTracker()
	}
	return &Reconciler{
		products: products,
		tracker:  tracker,
		timeout:  timeout,
		logger:   logger.With().Str("component", "cart-reconciler").Logger(),
	}
}

// Result describes what a reconcile run did.
type Result struct {
	Removed    int
	Changed    bool
	Superseded bool
}

// Run reconciles store, identified by key for supersession. The store is only
// written when the reconciled cart differs from the current one and no newer
// run for the same key has started.
func (r *Reconciler) Run(ctx context.Context, key string, store *Store) (Result, error) {
	ctx, tok := r.tracker.Begin(ctx, key)
	defer r.tracker.Done(tok)

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	items := store.Items()
	if len(items) == 0 {
		return Result{}, nil
	}

	ids := ProductIDs(items)
	products, err := r.products.GetByIDs(ctx, ids)
	if err != nil {
		if !r.tracker.Current(tok) {
			return Result{Superseded: true}, nil
		}
		r.logger.Error().Err(err).Int("products", len(ids)).Msg("failed to fetch products for reconcile")
		return Result{}, model.NewPersistenceError("failed to load products for the cart", err)
	}

	next := Reconcile(items, IndexProducts(products))
	if Equal(items, next) {
		return Result{}, nil
	}

	res := Result{Removed: len(items) - len(next), Changed: true}
	var saveErr error
	if !r.tracker.Commit(tok, func() { saveErr = store.Replace(next) }) {
		r.logger.Debug().Str("key", key).Msg("reconcile superseded, result dropped")
		return Result{Superseded: true}, nil
	}
	if saveErr != nil {
		return Result{}, saveErr
	}

	r.logger.Info().
		Str("key", key).
		Int("removed", res.Removed).
		Int("remaining", len(next)).
		Msg("cart reconciled")
	return res, nil
}
