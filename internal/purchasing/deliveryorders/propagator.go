package deliveryorders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nusantara-erp/nusantara-erp/internal/platform/cache"
	"github.com/nusantara-erp/nusantara-erp/internal/purchasing/externalorders"
	"github.com/nusantara-erp/nusantara-erp/internal/purchasing/purchaseorders"
	"github.com/nusantara-erp/nusantara-erp/internal/shared"
)

// updateRetries bounds the optimistic reload-and-retry loop per document.
const updateRetries = 3

// Propagator pushes a delivery order's fulfillments into the referenced
// purchase orders and rolls the closed flags up to the external orders.
// Each document is written at most once per run; concurrent writers are kept
// out with a per-document lock and an optimistic version check underneath.
type Propagator struct {
	purchaseOrders purchaseorders.Store
	externals      externalorders.Store
	resolver       *Resolver
	locks          *cache.Locker
	logger         *slog.Logger
}

// NewPropagator constructs a propagator. locks may be nil, in which case only
// the optimistic version check guards against concurrent writers.
func NewPropagator(
	purchaseOrders purchaseorders.Store,
	externals externalorders.Store,
	resolver *Resolver,
	locks *cache.Locker,
	logger *slog.Logger,
) *Propagator {
	return &Propagator{
		purchaseOrders: purchaseOrders,
		externals:      externals,
		resolver:       resolver,
		locks:          locks,
		logger:         logger,
	}
}

// Apply pushes every fulfillment of the delivery order into its purchase
// order ledger, then recomputes the closed flags of the touched external
// orders. Fulfillments hitting the same order line are summed into a single
// ledger entry per delivery order, so the entry carries every line of the
// submission while staying deduplicated on the delivery order number: running
// Apply again after a partial failure completes the remainder without
// double-counting.
func (p *Propagator) Apply(ctx context.Context, do *DeliveryOrder) error {
	for _, item := range do.Items {
		if err := p.checkItem(ctx, item); err != nil {
			return err
		}
	}
	for _, id := range do.PurchaseOrderIDs() {
		if err := p.writePurchaseOrder(ctx, do, id); err != nil {
			return err
		}
	}
	for _, externalID := range do.ExternalIDs() {
		if err := p.refreshExternal(ctx, externalID); err != nil {
			return err
		}
	}
	return nil
}

// checkItem resolves the purchase orders one delivery item references and
// verifies every fulfillment hits an existing order line, before any write.
func (p *Propagator) checkItem(ctx context.Context, item DeliveryItem) error {
	orders, err := p.resolver.ResolvePurchaseOrders(ctx, item)
	if err != nil {
		return err
	}
	for _, f := range item.Fulfillments {
		po := orders[f.PurchaseOrderID]
		if _, ok := po.FindItem(f.ProductID); !ok {
			return fmt.Errorf("%w: purchase order %s has no item for product %s",
				ErrInvariantViolation, f.PurchaseOrderID, f.ProductID)
		}
	}
	return nil
}

// writePurchaseOrder re-reads the order under the lock, folds this delivery
// order's fulfillments onto the fresh copy, and updates it. The re-read keeps
// the write correct even when the lock is absent and another writer slipped in
// between resolve and write. Orders whose ledger already carries the entry are
// left untouched.
func (p *Propagator) writePurchaseOrder(ctx context.Context, do *DeliveryOrder, id uuid.UUID) error {
	lock, err := p.acquire(ctx, shared.PurchaseOrderLockKey(id))
	if err != nil {
		return err
	}
	defer lock.Release(ctx)

	for attempt := 0; attempt < updateRetries; attempt++ {
		po, err := p.purchaseOrders.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, purchaseorders.ErrNotFound) {
				return fmt.Errorf("%w: purchase order %s", ErrReferenceNotFound, id)
			}
			return fmt.Errorf("reload purchase order %s: %w", id, err)
		}
		appended, err := applyDeliveryOrder(po, do)
		if err != nil {
			return err
		}
		if !appended {
			p.logger.InfoContext(ctx, "fulfillment already applied",
				slog.String("delivery_order_no", do.No),
				slog.String("purchase_order_id", id.String()))
			return nil
		}
		po.RecomputeClosed()

		err = p.purchaseOrders.Update(ctx, po)
		if err == nil {
			return nil
		}
		if !errors.Is(err, purchaseorders.ErrVersionConflict) {
			return fmt.Errorf("update purchase order %s: %w", id, err)
		}
		p.logger.WarnContext(ctx, "purchase order version conflict, retrying",
			slog.String("purchase_order_id", id.String()),
			slog.Int("attempt", attempt+1))
	}
	return fmt.Errorf("update purchase order %s: %w", id, purchaseorders.ErrVersionConflict)
}

// applyDeliveryOrder folds the delivery order's fulfillments for one purchase
// order into its ledger, summing lines that deliver against the same product
// so the order receives one entry per line per delivery order. Reports whether
// any entry was appended.
func applyDeliveryOrder(po *purchaseorders.PurchaseOrder, do *DeliveryOrder) (bool, error) {
	totals := make(map[uuid.UUID]float64)
	products := make([]uuid.UUID, 0)
	for _, item := range do.Items {
		for _, f := range item.Fulfillments {
			if f.PurchaseOrderID != po.ID {
				continue
			}
			if _, ok := totals[f.ProductID]; !ok {
				products = append(products, f.ProductID)
			}
			totals[f.ProductID] += f.DeliveredQuantity
		}
	}

	appended := false
	for _, productID := range products {
		line, ok := po.FindItem(productID)
		if !ok {
			return false, fmt.Errorf("%w: purchase order %s has no item for product %s",
				ErrInvariantViolation, po.ID, productID)
		}
		if line.ApplyFulfillment(purchaseorders.FulfillmentRecord{
			DeliveryOrderNo:   do.No,
			DeliveredQuantity: totals[productID],
			DeliveryOrderDate: do.Date,
			SupplierDoDate:    do.SupplierDoDate,
		}) {
			appended = true
		}
	}
	return appended, nil
}

// refreshExternal reloads the external order and its constituents and derives
// the rolled-up closed flag from their current state.
func (p *Propagator) refreshExternal(ctx context.Context, id uuid.UUID) error {
	lock, err := p.acquire(ctx, shared.PurchaseOrderExternalLockKey(id))
	if err != nil {
		return err
	}
	defer lock.Release(ctx)

	for attempt := 0; attempt < updateRetries; attempt++ {
		poe, err := p.resolver.ResolveExternal(ctx, id)
		if err != nil {
			return err
		}
		constituents, err := p.resolver.ResolveExternalConstituents(ctx, poe)
		if err != nil {
			return err
		}
		poe.Recompute(constituents)

		err = p.externals.Update(ctx, poe)
		if err == nil {
			return nil
		}
		if !errors.Is(err, externalorders.ErrVersionConflict) {
			return fmt.Errorf("update external purchase order %s: %w", id, err)
		}
		p.logger.WarnContext(ctx, "external purchase order version conflict, retrying",
			slog.String("purchase_order_external_id", id.String()),
			slog.Int("attempt", attempt+1))
	}
	return fmt.Errorf("update external purchase order %s: %w", id, externalorders.ErrVersionConflict)
}

// acquire takes a lock when a locker is configured; a nil *cache.Lock releases
// as a no-op.
func (p *Propagator) acquire(ctx context.Context, key string) (*cache.Lock, error) {
	if p.locks == nil {
		return nil, nil
	}
	lock, err := p.locks.Acquire(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	return lock, nil
}
