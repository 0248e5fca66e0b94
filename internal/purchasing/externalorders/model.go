// Package externalorders tracks supplier-facing external purchase orders,
// each aggregating a set of internal purchase orders.
package externalorders

import (
	"errors"

	"github.com/google/uuid"

	"github.com/nusantara-erp/nusantara-erp/internal/purchasing/purchaseorders"
)

// PurchaseOrderExternal groups the internal purchase orders covered by one
// external agreement. Items carries a cached snapshot of the constituents,
// refreshed on every recompute.
type PurchaseOrderExternal struct {
	ID         uuid.UUID                      `json:"id"`
	No         string                         `json:"no"`
	SupplierID uuid.UUID                      `json:"supplier_id"`
	IsClosed   bool                           `json:"is_closed"`
	Items      []purchaseorders.PurchaseOrder `json:"items"`
	Version    int64                          `json:"-"`
}

// Snapshot is the slim reference embedded in delivery order items.
type Snapshot struct {
	ID uuid.UUID `json:"id"`
	No string    `json:"no"`
}

var (
	// ErrNotFound indicates the external purchase order does not exist.
	ErrNotFound = errors.New("external purchase order not found")
	// ErrVersionConflict indicates a concurrent writer won the update.
	ErrVersionConflict = errors.New("external purchase order version conflict")
)

// ConstituentIDs lists the internal purchase orders in document order.
func (poe *PurchaseOrderExternal) ConstituentIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(poe.Items))
	for idx := range poe.Items {
		ids = append(ids, poe.Items[idx].ID)
	}
	return ids
}

// Recompute replaces the cached constituent snapshots and derives the closed
// flag from all of them. The reduction deliberately visits every constituent
// instead of breaking early.
func (poe *PurchaseOrderExternal) Recompute(constituents []purchaseorders.PurchaseOrder) {
	closed := len(constituents) > 0
	for idx := range constituents {
		closed = closed && constituents[idx].IsClosed
	}
	poe.Items = constituents
	poe.IsClosed = closed
}
