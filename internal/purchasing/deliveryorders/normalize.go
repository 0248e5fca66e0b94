package deliveryorders

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/nusantara-erp/nusantara-erp/internal/purchasing/externalorders"
	"github.com/nusantara-erp/nusantara-erp/internal/purchasing/purchaseorders"
)

// normalizer walks a submitted document once and coerces every embedded
// identifier to its canonical uuid form, collecting failures per field path.
type normalizer struct {
	errs FieldErrors
}

func (n *normalizer) id(path, raw string) uuid.UUID {
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		n.errs[path] = fmt.Sprintf("%s is not a valid identifier", path)
		return uuid.Nil
	}
	return id
}

// normalizeCreateRequest rehydrates the denormalized references of a request
// into a delivery order with canonical identifiers, so identity comparisons
// during propagation are exact.
func normalizeCreateRequest(req CreateRequest) (*DeliveryOrder, FieldErrors) {
	n := &normalizer{errs: FieldErrors{}}

	do := &DeliveryOrder{
		No:             req.No,
		Date:           req.Date,
		SupplierDoDate: req.SupplierDoDate,
		SupplierID:     n.id("supplierId", req.SupplierID),
		Supplier: Supplier{
			ID:   n.id("supplier.id", req.Supplier.ID),
			Code: req.Supplier.Code,
			Name: req.Supplier.Name,
		},
		Items: make([]DeliveryItem, 0, len(req.Items)),
	}

	for i, item := range req.Items {
		externalID := item.PurchaseOrderExternalID
		if externalID == "" && item.PurchaseOrderExternal != nil {
			externalID = item.PurchaseOrderExternal.ID
		}
		out := DeliveryItem{
			PurchaseOrderExternalID: n.id(fmt.Sprintf("items[%d].purchaseOrderExternalId", i), externalID),
			Fulfillments:            make([]Fulfillment, 0, len(item.Fulfillments)),
		}
		if item.PurchaseOrderExternal != nil {
			out.PurchaseOrderExternal = externalorders.Snapshot{
				ID: n.id(fmt.Sprintf("items[%d].purchaseOrderExternal.id", i), item.PurchaseOrderExternal.ID),
				No: item.PurchaseOrderExternal.No,
			}
		}
		for j, f := range item.Fulfillments {
			prefix := fmt.Sprintf("items[%d].fulfillments[%d]", i, j)
			orderID := f.PurchaseOrderID
			if orderID == "" {
				orderID = f.PurchaseOrder.ID
			}
			productID := f.ProductID
			if productID == "" {
				productID = f.Product.ID
			}
			out.Fulfillments = append(out.Fulfillments, Fulfillment{
				PurchaseOrderID: n.id(prefix+".purchaseOrderId", orderID),
				PurchaseOrder: purchaseorders.Snapshot{
					ID: n.id(prefix+".purchaseOrder.id", f.PurchaseOrder.ID),
					No: f.PurchaseOrder.No,
				},
				ProductID: n.id(prefix+".productId", productID),
				Product: purchaseorders.Product{
					ID:   n.id(prefix+".product.id", f.Product.ID),
					Code: f.Product.Code,
					Name: f.Product.Name,
					UOM:  f.Product.UOM,
				},
				PurchaseOrderQuantity: f.PurchaseOrderQuantity,
				DeliveredQuantity:     f.DeliveredQuantity,
			})
		}
		do.Items = append(do.Items, out)
	}

	return do, n.errs
}
