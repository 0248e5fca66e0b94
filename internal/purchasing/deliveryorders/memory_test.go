package deliveryorders

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nusantara-erp/nusantara-erp/internal/purchasing/externalorders"
	"github.com/nusantara-erp/nusantara-erp/internal/purchasing/purchaseorders"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memoryDeliveryOrderStore struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*DeliveryOrder
}

func newMemoryDeliveryOrderStore() *memoryDeliveryOrderStore {
	return &memoryDeliveryOrderStore{orders: make(map[uuid.UUID]*DeliveryOrder)}
}

func cloneDeliveryOrder(do *DeliveryOrder) *DeliveryOrder {
	data, _ := json.Marshal(do)
	var out DeliveryOrder
	_ = json.Unmarshal(data, &out)
	return &out
}

func (s *memoryDeliveryOrderStore) Insert(ctx context.Context, do *DeliveryOrder) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.orders {
		if !existing.IsDeleted && strings.EqualFold(existing.No, do.No) {
			return uuid.Nil, ErrDuplicateNo
		}
	}
	s.orders[do.ID] = cloneDeliveryOrder(do)
	return do.ID, nil
}

func (s *memoryDeliveryOrderStore) Update(ctx context.Context, do *DeliveryOrder) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[do.ID]; !ok {
		return uuid.Nil, ErrNotFound
	}
	s.orders[do.ID] = cloneDeliveryOrder(do)
	return do.ID, nil
}

func (s *memoryDeliveryOrderStore) GetByID(ctx context.Context, id uuid.UUID) (*DeliveryOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	do, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDeliveryOrder(do), nil
}

func (s *memoryDeliveryOrderStore) FindActiveByNo(ctx context.Context, no string, excludeID uuid.UUID) (*DeliveryOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, do := range s.orders {
		if do.IsDeleted || do.ID == excludeID {
			continue
		}
		if strings.EqualFold(do.No, no) {
			return cloneDeliveryOrder(do), nil
		}
	}
	return nil, nil
}

func (s *memoryDeliveryOrderStore) Query(ctx context.Context, filter QueryFilter) ([]DeliveryOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []DeliveryOrder
	for _, do := range s.orders {
		if do.IsDeleted {
			continue
		}
		if filter.No != "" && do.No != filter.No {
			continue
		}
		if filter.SupplierID != "" && do.SupplierID.String() != filter.SupplierID {
			continue
		}
		if filter.DateFrom != nil && do.SupplierDoDate.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && do.SupplierDoDate.After(*filter.DateTo) {
			continue
		}
		out = append(out, *cloneDeliveryOrder(do))
	}
	return out, nil
}

func (s *memoryDeliveryOrderStore) List(ctx context.Context, req ListRequest) ([]DeliveryOrder, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []DeliveryOrder
	for _, do := range s.orders {
		if do.IsDeleted {
			continue
		}
		if req.Keyword != "" &&
			!strings.Contains(strings.ToLower(do.No), strings.ToLower(req.Keyword)) &&
			!strings.Contains(strings.ToLower(do.Supplier.Name), strings.ToLower(req.Keyword)) {
			continue
		}
		out = append(out, *cloneDeliveryOrder(do))
	}
	return out, len(out), nil
}

type memoryPurchaseOrderStore struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*purchaseorders.PurchaseOrder
}

func newMemoryPurchaseOrderStore() *memoryPurchaseOrderStore {
	return &memoryPurchaseOrderStore{orders: make(map[uuid.UUID]*purchaseorders.PurchaseOrder)}
}

func clonePurchaseOrder(po *purchaseorders.PurchaseOrder) *purchaseorders.PurchaseOrder {
	data, _ := json.Marshal(po)
	var out purchaseorders.PurchaseOrder
	_ = json.Unmarshal(data, &out)
	out.Version = po.Version
	return &out
}

func (s *memoryPurchaseOrderStore) put(po *purchaseorders.PurchaseOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[po.ID] = clonePurchaseOrder(po)
}

func (s *memoryPurchaseOrderStore) GetByID(ctx context.Context, id uuid.UUID) (*purchaseorders.PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	po, ok := s.orders[id]
	if !ok {
		return nil, purchaseorders.ErrNotFound
	}
	return clonePurchaseOrder(po), nil
}

func (s *memoryPurchaseOrderStore) Update(ctx context.Context, po *purchaseorders.PurchaseOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.orders[po.ID]
	if !ok {
		return purchaseorders.ErrNotFound
	}
	if stored.Version != po.Version {
		return purchaseorders.ErrVersionConflict
	}
	po.Version++
	s.orders[po.ID] = clonePurchaseOrder(po)
	return nil
}

type memoryExternalOrderStore struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*externalorders.PurchaseOrderExternal
}

func newMemoryExternalOrderStore() *memoryExternalOrderStore {
	return &memoryExternalOrderStore{orders: make(map[uuid.UUID]*externalorders.PurchaseOrderExternal)}
}

func cloneExternalOrder(poe *externalorders.PurchaseOrderExternal) *externalorders.PurchaseOrderExternal {
	data, _ := json.Marshal(poe)
	var out externalorders.PurchaseOrderExternal
	_ = json.Unmarshal(data, &out)
	out.Version = poe.Version
	return &out
}

func (s *memoryExternalOrderStore) put(poe *externalorders.PurchaseOrderExternal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[poe.ID] = cloneExternalOrder(poe)
}

func (s *memoryExternalOrderStore) GetByID(ctx context.Context, id uuid.UUID) (*externalorders.PurchaseOrderExternal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	poe, ok := s.orders[id]
	if !ok {
		return nil, externalorders.ErrNotFound
	}
	return cloneExternalOrder(poe), nil
}

func (s *memoryExternalOrderStore) Update(ctx context.Context, poe *externalorders.PurchaseOrderExternal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.orders[poe.ID]
	if !ok {
		return externalorders.ErrNotFound
	}
	if stored.Version != poe.Version {
		return externalorders.ErrVersionConflict
	}
	poe.Version++
	s.orders[poe.ID] = cloneExternalOrder(poe)
	return nil
}

type memoryTaskQueue struct {
	mu       sync.Mutex
	enqueued []uuid.UUID
}

func (q *memoryTaskQueue) EnqueueFulfillmentReapply(ctx context.Context, id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueued = append(q.enqueued, id)
	return nil
}

func fixedTime() time.Time {
	return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
}

func cloneCreateRequest(req CreateRequest) CreateRequest {
	data, _ := json.Marshal(req)
	var out CreateRequest
	_ = json.Unmarshal(data, &out)
	return out
}
