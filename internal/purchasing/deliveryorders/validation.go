package deliveryorders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Validator checks a proposed delivery order for structural and business
// correctness. Every failed check lands in the field-error map; checks are not
// fail-fast, so the caller sees all problems of one submission at once.
type Validator struct {
	store Store
	now   func() time.Time
	msg   *message.Printer
}

// NewValidator constructs a validator using the store for the uniqueness lookup.
func NewValidator(store Store) *Validator {
	return &Validator{
		store: store,
		now:   time.Now,
		msg:   message.NewPrinter(language.English),
	}
}

// Validate runs every check against the request. excludeID carries the
// document's own identity on edit and post, so the uniqueness lookup does not
// match the record against itself. On success the request is returned as a
// delivery order with all identifiers normalized to their canonical form.
func (v *Validator) Validate(ctx context.Context, req CreateRequest, excludeID uuid.UUID) (*DeliveryOrder, error) {
	errs := FieldErrors{}
	now := v.now()

	if req.No == "" {
		errs["no"] = v.msg.Sprintf("%s is required", "no")
	} else {
		existing, err := v.store.FindActiveByNo(ctx, req.No, excludeID)
		if err != nil {
			return nil, fmt.Errorf("check delivery order number: %w", err)
		}
		if existing != nil {
			errs["no"] = v.msg.Sprintf("%s already exists", "no")
		}
	}

	if req.Date.IsZero() {
		errs["date"] = v.msg.Sprintf("%s is required", "date")
	} else if req.Date.After(now) {
		errs["date"] = v.msg.Sprintf("%s is greater than today", "date")
	}

	if req.SupplierDoDate.IsZero() {
		errs["supplierDoDate"] = v.msg.Sprintf("%s is required", "supplierDoDate")
	}

	if req.SupplierID == "" {
		errs["supplierId"] = v.msg.Sprintf("%s is required", "supplierId")
	}

	if len(req.Items) < 1 {
		errs["items"] = v.msg.Sprintf("%s is required", "items")
	} else if itemErrs, ok := v.validateItems(req.Items); ok {
		errs["items"] = itemErrs
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	do, normErrs := normalizeCreateRequest(req)
	if len(normErrs) > 0 {
		return nil, &ValidationError{Fields: normErrs}
	}
	do.ID = excludeID
	return do, nil
}

// validateItems collects per-item and per-fulfillment errors into a structure
// mirroring the input, one entry per position.
func (v *Validator) validateItems(items []ItemRequest) ([]FieldErrors, bool) {
	itemErrs := make([]FieldErrors, len(items))
	hasErr := false

	for i, item := range items {
		itemErr := FieldErrors{}

		if item.PurchaseOrderExternal == nil || item.PurchaseOrderExternal.ID == "" {
			itemErr["purchaseOrderExternal"] = v.msg.Sprintf("%s is required", "purchaseOrderExternal")
		}

		fulErrs := make([]FieldErrors, len(item.Fulfillments))
		fulHasErr := false
		for j, f := range item.Fulfillments {
			fulErr := FieldErrors{}
			if f.DeliveredQuantity <= 0 {
				fulErr["deliveredQuantity"] = v.msg.Sprintf("%s is required or must not be zero", "deliveredQuantity")
			} else if f.DeliveredQuantity > f.PurchaseOrderQuantity {
				fulErr["deliveredQuantity"] = v.msg.Sprintf("%s is greater than the purchase order quantity", "deliveredQuantity")
			}
			if len(fulErr) > 0 {
				fulHasErr = true
			}
			fulErrs[j] = fulErr
		}
		if fulHasErr {
			itemErr["fulfillments"] = fulErrs
		}

		if len(itemErr) > 0 {
			hasErr = true
		}
		itemErrs[i] = itemErr
	}

	return itemErrs, hasErr
}
