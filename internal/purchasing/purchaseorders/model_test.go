package purchaseorders

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testItem(deal float64) Item {
	return Item{
		ProductID:    uuid.New(),
		DealQuantity: deal,
	}
}

func TestApplyFulfillmentRecomputesRealization(t *testing.T) {
	item := testItem(10)

	appended := item.ApplyFulfillment(FulfillmentRecord{DeliveryOrderNo: "DO-001", DeliveredQuantity: 4})
	require.True(t, appended)
	require.Equal(t, 4.0, item.RealizationQuantity)
	require.False(t, item.IsClosed)

	appended = item.ApplyFulfillment(FulfillmentRecord{DeliveryOrderNo: "DO-002", DeliveredQuantity: 6})
	require.True(t, appended)
	require.Equal(t, 10.0, item.RealizationQuantity)
	require.True(t, item.IsClosed)
}

func TestApplyFulfillmentDeduplicatesByDeliveryOrderNo(t *testing.T) {
	item := testItem(10)

	require.True(t, item.ApplyFulfillment(FulfillmentRecord{DeliveryOrderNo: "DO-001", DeliveredQuantity: 4}))
	require.False(t, item.ApplyFulfillment(FulfillmentRecord{DeliveryOrderNo: "DO-001", DeliveredQuantity: 4}))

	require.Len(t, item.Fulfillments, 1)
	require.Equal(t, 4.0, item.RealizationQuantity)
}

func TestItemClosesOnlyOnExactRealization(t *testing.T) {
	item := testItem(10)

	item.ApplyFulfillment(FulfillmentRecord{DeliveryOrderNo: "DO-001", DeliveredQuantity: 9})
	require.False(t, item.IsClosed)

	item.ApplyFulfillment(FulfillmentRecord{DeliveryOrderNo: "DO-002", DeliveredQuantity: 1})
	require.True(t, item.IsClosed)
}

func TestRecomputeReopensItemWhenLedgerShrinks(t *testing.T) {
	item := testItem(5)
	item.ApplyFulfillment(FulfillmentRecord{DeliveryOrderNo: "DO-001", DeliveredQuantity: 5})
	require.True(t, item.IsClosed)

	item.Fulfillments = nil
	item.Recompute()
	require.False(t, item.IsClosed)
	require.Equal(t, 0.0, item.RealizationQuantity)
}

func TestRecomputeClosedRequiresEveryItemClosed(t *testing.T) {
	po := PurchaseOrder{
		ID: uuid.New(),
		Items: []Item{
			{ProductID: uuid.New(), DealQuantity: 5, IsClosed: true},
			{ProductID: uuid.New(), DealQuantity: 3, IsClosed: false},
		},
	}

	po.RecomputeClosed()
	require.False(t, po.IsClosed)

	po.Items[1].IsClosed = true
	po.RecomputeClosed()
	require.True(t, po.IsClosed)
}

func TestRecomputeClosedWithoutItemsStaysOpen(t *testing.T) {
	po := PurchaseOrder{ID: uuid.New(), IsClosed: true}
	po.RecomputeClosed()
	require.False(t, po.IsClosed)
}

func TestRecomputeClosedFlipsBackWhenItemReopens(t *testing.T) {
	po := PurchaseOrder{
		ID:       uuid.New(),
		IsClosed: true,
		Items: []Item{
			{ProductID: uuid.New(), DealQuantity: 5, IsClosed: true},
		},
	}

	po.Items[0].Fulfillments = nil
	po.Items[0].Recompute()
	po.RecomputeClosed()
	require.False(t, po.IsClosed)
}

func TestFindItemMatchesOnProductID(t *testing.T) {
	productID := uuid.New()
	po := PurchaseOrder{Items: []Item{
		{ProductID: uuid.New()},
		{ProductID: productID},
	}}

	item, ok := po.FindItem(productID)
	require.True(t, ok)
	require.Equal(t, productID, item.ProductID)

	_, ok = po.FindItem(uuid.New())
	require.False(t, ok)
}

func TestApplyFulfillmentKeepsLedgerDates(t *testing.T) {
	item := testItem(2)
	doDate := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	supplierDate := time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)

	item.ApplyFulfillment(FulfillmentRecord{
		DeliveryOrderNo:   "DO-001",
		DeliveredQuantity: 2,
		DeliveryOrderDate: doDate,
		SupplierDoDate:    supplierDate,
	})

	require.Equal(t, doDate, item.Fulfillments[0].DeliveryOrderDate)
	require.Equal(t, supplierDate, item.Fulfillments[0].SupplierDoDate)
}
