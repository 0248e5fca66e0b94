// Package purchaseorders tracks internal purchase orders and the delivery
// fulfillment ledger kept per order item.
package purchaseorders

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Product is the denormalized product snapshot carried on order items.
type Product struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
	Name string    `json:"name"`
	UOM  string    `json:"uom"`
}

// FulfillmentRecord is one ledger entry recording a delivery applied to an item.
type FulfillmentRecord struct {
	DeliveryOrderNo   string    `json:"delivery_order_no"`
	DeliveredQuantity float64   `json:"delivered_quantity"`
	DeliveryOrderDate time.Time `json:"delivery_order_date"`
	SupplierDoDate    time.Time `json:"supplier_do_date"`
}

// Item is a contracted product line with its append-only fulfillment ledger.
type Item struct {
	ProductID           uuid.UUID           `json:"product_id"`
	Product             Product             `json:"product"`
	DealQuantity        float64             `json:"deal_quantity"`
	RealizationQuantity float64             `json:"realization_quantity"`
	IsClosed            bool                `json:"is_closed"`
	Fulfillments        []FulfillmentRecord `json:"fulfillments"`
}

// PurchaseOrder is the buyer-side contracted order document.
type PurchaseOrder struct {
	ID         uuid.UUID `json:"id"`
	No         string    `json:"no"`
	SupplierID uuid.UUID `json:"supplier_id"`
	IsClosed   bool      `json:"is_closed"`
	Items      []Item    `json:"items"`
	Version    int64     `json:"-"`
}

// Snapshot is the slim reference embedded in delivery order fulfillments.
type Snapshot struct {
	ID uuid.UUID `json:"id"`
	No string    `json:"no"`
}

var (
	// ErrNotFound indicates the purchase order does not exist.
	ErrNotFound = errors.New("purchase order not found")
	// ErrVersionConflict indicates a concurrent writer won the update.
	ErrVersionConflict = errors.New("purchase order version conflict")
)

// ApplyFulfillment appends a ledger entry and recomputes the item.
// Entries are deduplicated on the delivery order number so re-running a
// propagation cannot double-count. Reports whether the entry was appended.
func (i *Item) ApplyFulfillment(rec FulfillmentRecord) bool {
	for _, existing := range i.Fulfillments {
		if existing.DeliveryOrderNo == rec.DeliveryOrderNo {
			i.Recompute()
			return false
		}
	}
	i.Fulfillments = append(i.Fulfillments, rec)
	i.Recompute()
	return true
}

// Recompute derives the realized quantity from the ledger and refreshes the
// closed flag. An item closes only on exact realization of the deal quantity.
func (i *Item) Recompute() {
	var total float64
	for _, rec := range i.Fulfillments {
		total += rec.DeliveredQuantity
	}
	i.RealizationQuantity = total
	i.IsClosed = i.RealizationQuantity == i.DealQuantity
}

// FindItem locates the item line for a product.
func (po *PurchaseOrder) FindItem(productID uuid.UUID) (*Item, bool) {
	for idx := range po.Items {
		if po.Items[idx].ProductID == productID {
			return &po.Items[idx], true
		}
	}
	return nil, false
}

// RecomputeClosed derives the order closed flag from all items. The reduction
// deliberately visits every item instead of breaking early.
func (po *PurchaseOrder) RecomputeClosed() {
	closed := len(po.Items) > 0
	for idx := range po.Items {
		closed = closed && po.Items[idx].IsClosed
	}
	po.IsClosed = closed
}
