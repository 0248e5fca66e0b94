package shared

import (
	"fmt"

	"github.com/google/uuid"
)

// PurchaseOrderLockKey builds redis keys serializing fulfillment writes per purchase order.
func PurchaseOrderLockKey(id uuid.UUID) string {
	return fmt.Sprintf("purchasing:po:%s:lock", id)
}

// PurchaseOrderExternalLockKey builds redis keys for external purchase order recomputes.
func PurchaseOrderExternalLockKey(id uuid.UUID) string {
	return fmt.Sprintf("purchasing:poe:%s:lock", id)
}
