package deliveryorders

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nusantara-erp/nusantara-erp/internal/purchasing/externalorders"
	"github.com/nusantara-erp/nusantara-erp/internal/purchasing/purchaseorders"
)

// Resolver loads the purchase order documents a delivery order references.
type Resolver struct {
	purchaseOrders purchaseorders.Store
	externals      externalorders.Store
}

// NewResolver constructs a resolver over the two stores.
func NewResolver(purchaseOrders purchaseorders.Store, externals externalorders.Store) *Resolver {
	return &Resolver{purchaseOrders: purchaseOrders, externals: externals}
}

// ResolvePurchaseOrders loads every purchase order referenced by the item's
// fulfillments. Loads for distinct orders run concurrently and are joined
// before the result is returned, so propagation always starts from a complete
// in-memory snapshot: an order referenced by several fulfillments appears once
// and receives all of them.
func (r *Resolver) ResolvePurchaseOrders(ctx context.Context, item DeliveryItem) (map[uuid.UUID]*purchaseorders.PurchaseOrder, error) {
	ids := make([]uuid.UUID, 0, len(item.Fulfillments))
	seen := make(map[uuid.UUID]struct{}, len(item.Fulfillments))
	for _, f := range item.Fulfillments {
		if _, ok := seen[f.PurchaseOrderID]; ok {
			continue
		}
		seen[f.PurchaseOrderID] = struct{}{}
		ids = append(ids, f.PurchaseOrderID)
	}

	resolved := make(map[uuid.UUID]*purchaseorders.PurchaseOrder, len(ids))
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			po, err := r.purchaseOrders.GetByID(ctx, id)
			if err != nil {
				if errors.Is(err, purchaseorders.ErrNotFound) {
					return fmt.Errorf("%w: purchase order %s", ErrReferenceNotFound, id)
				}
				return fmt.Errorf("resolve purchase order %s: %w", id, err)
			}
			mu.Lock()
			resolved[id] = po
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resolved, nil
}

// ResolveExternal loads the external purchase order for a delivery item.
func (r *Resolver) ResolveExternal(ctx context.Context, id uuid.UUID) (*externalorders.PurchaseOrderExternal, error) {
	poe, err := r.externals.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, externalorders.ErrNotFound) {
			return nil, fmt.Errorf("%w: external purchase order %s", ErrReferenceNotFound, id)
		}
		return nil, fmt.Errorf("resolve external purchase order %s: %w", id, err)
	}
	return poe, nil
}

// ResolveExternalConstituents loads the current state of every constituent
// purchase order, concurrently, preserving document order.
func (r *Resolver) ResolveExternalConstituents(ctx context.Context, poe *externalorders.PurchaseOrderExternal) ([]purchaseorders.PurchaseOrder, error) {
	ids := poe.ConstituentIDs()
	constituents := make([]purchaseorders.PurchaseOrder, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	for idx, id := range ids {
		idx, id := idx, id
		g.Go(func() error {
			po, err := r.purchaseOrders.GetByID(ctx, id)
			if err != nil {
				if errors.Is(err, purchaseorders.ErrNotFound) {
					return fmt.Errorf("%w: purchase order %s", ErrReferenceNotFound, id)
				}
				return fmt.Errorf("resolve constituent %s: %w", id, err)
			}
			constituents[idx] = *po
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return constituents, nil
}
