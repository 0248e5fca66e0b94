package deliveryorders

import "time"

// SupplierRef carries the supplier snapshot as submitted by the caller,
// identifiers still in their wire (string) form.
type SupplierRef struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// OrderRef references an internal purchase order.
type OrderRef struct {
	ID string `json:"id"`
	No string `json:"no"`
}

// ExternalRef references an external purchase order.
type ExternalRef struct {
	ID string `json:"id"`
	No string `json:"no"`
}

// ProductRef carries the product snapshot for a fulfillment line.
type ProductRef struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
	UOM  string `json:"uom"`
}

// FulfillmentRequest is one submitted delivery line.
type FulfillmentRequest struct {
	PurchaseOrderID       string     `json:"purchase_order_id"`
	PurchaseOrder         OrderRef   `json:"purchase_order"`
	ProductID             string     `json:"product_id"`
	Product               ProductRef `json:"product"`
	PurchaseOrderQuantity float64    `json:"purchase_order_quantity"`
	DeliveredQuantity     float64    `json:"delivered_quantity"`
}

// ItemRequest groups submitted fulfillments under one external purchase order.
type ItemRequest struct {
	PurchaseOrderExternalID string               `json:"purchase_order_external_id"`
	PurchaseOrderExternal   *ExternalRef         `json:"purchase_order_external"`
	Fulfillments            []FulfillmentRequest `json:"fulfillments"`
}

// CreateRequest is the payload for creating a delivery order.
type CreateRequest struct {
	No             string        `json:"no"`
	Date           time.Time     `json:"date"`
	SupplierDoDate time.Time     `json:"supplier_do_date"`
	SupplierID     string        `json:"supplier_id"`
	Supplier       SupplierRef   `json:"supplier"`
	Items          []ItemRequest `json:"items"`
}

// QueryFilter narrows the delivery order report query. Zero values are
// ignored; the date range applies to the supplier delivery date.
type QueryFilter struct {
	No         string
	SupplierID string
	DateFrom   *time.Time
	DateTo     *time.Time
}

// ListRequest describes a paginated keyword listing.
type ListRequest struct {
	Keyword string
	Page    int
	PerPage int
}
