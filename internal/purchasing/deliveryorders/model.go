// Package deliveryorders records supplier delivery orders and propagates
// their fulfillments onto the purchase orders they deliver against.
package deliveryorders

import (
	"time"

	"github.com/google/uuid"

	"github.com/nusantara-erp/nusantara-erp/internal/purchasing/externalorders"
	"github.com/nusantara-erp/nusantara-erp/internal/purchasing/purchaseorders"
	"github.com/nusantara-erp/nusantara-erp/internal/shared"
)

// Supplier is the denormalized supplier snapshot on a delivery order.
type Supplier struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
	Name string    `json:"name"`
}

// Fulfillment is one delivery line contributing to a purchase order item.
type Fulfillment struct {
	PurchaseOrderID       uuid.UUID               `json:"purchase_order_id"`
	PurchaseOrder         purchaseorders.Snapshot `json:"purchase_order"`
	ProductID             uuid.UUID               `json:"product_id"`
	Product               purchaseorders.Product  `json:"product"`
	PurchaseOrderQuantity float64                 `json:"purchase_order_quantity"`
	DeliveredQuantity     float64                 `json:"delivered_quantity"`
}

// DeliveryItem groups the fulfillments delivered under one external purchase order.
type DeliveryItem struct {
	PurchaseOrderExternalID uuid.UUID               `json:"purchase_order_external_id"`
	PurchaseOrderExternal   externalorders.Snapshot `json:"purchase_order_external"`
	Fulfillments            []Fulfillment           `json:"fulfillments"`
}

// DeliveryOrder is the record of goods physically delivered by a supplier.
type DeliveryOrder struct {
	ID             uuid.UUID         `json:"id"`
	No             string            `json:"no"`
	Date           time.Time         `json:"date"`
	SupplierDoDate time.Time         `json:"supplier_do_date"`
	SupplierID     uuid.UUID         `json:"supplier_id"`
	Supplier       Supplier          `json:"supplier"`
	Items          []DeliveryItem    `json:"items"`
	IsPosted       bool              `json:"is_posted"`
	IsDeleted      bool              `json:"is_deleted"`
	Stamp          shared.AuditStamp `json:"stamp"`
}

// PurchaseOrderIDs lists the distinct purchase orders the delivery order's
// fulfillments deliver against, in document order.
func (do *DeliveryOrder) PurchaseOrderIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0, len(do.Items))
	for _, item := range do.Items {
		for _, f := range item.Fulfillments {
			if _, ok := seen[f.PurchaseOrderID]; ok {
				continue
			}
			seen[f.PurchaseOrderID] = struct{}{}
			ids = append(ids, f.PurchaseOrderID)
		}
	}
	return ids
}

// ExternalIDs lists the distinct external purchase orders referenced by the
// delivery order, in document order.
func (do *DeliveryOrder) ExternalIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(do.Items))
	ids := make([]uuid.UUID, 0, len(do.Items))
	for _, item := range do.Items {
		if _, ok := seen[item.PurchaseOrderExternalID]; ok {
			continue
		}
		seen[item.PurchaseOrderExternalID] = struct{}{}
		ids = append(ids, item.PurchaseOrderExternalID)
	}
	return ids
}
