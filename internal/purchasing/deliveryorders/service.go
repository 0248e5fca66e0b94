package deliveryorders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nusantara-erp/nusantara-erp/internal/observability"
	"github.com/nusantara-erp/nusantara-erp/internal/shared"
)

// Audit actions recorded by the service.
const (
	auditActionCreate  = "DO_CREATE"
	auditActionPost    = "DO_POST"
	auditActionDelete  = "DO_DELETE"
	auditActionReapply = "DO_REAPPLY"

	auditEntity = "delivery_order"
)

// TaskQueue enqueues background recovery work.
type TaskQueue interface {
	EnqueueFulfillmentReapply(ctx context.Context, id uuid.UUID) error
}

// Service owns the delivery order lifecycle: validation, persistence,
// fulfillment propagation and the post transition.
type Service struct {
	store      Store
	validator  *Validator
	propagator *Propagator
	audit      *shared.AuditLogger
	tasks      TaskQueue
	logger     *slog.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// NewService wires the delivery order service. tasks may be nil when no
// background queue is available (the worker wires itself without one).
func NewService(
	store Store,
	validator *Validator,
	propagator *Propagator,
	audit *shared.AuditLogger,
	tasks TaskQueue,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:      store,
		validator:  validator,
		propagator: propagator,
		audit:      audit,
		tasks:      tasks,
		logger:     logger,
		now:        time.Now,
	}
}

// SetMetrics attaches the metrics collector. Safe to skip in tests.
func (s *Service) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

// Create validates the submitted document, persists it, and propagates its
// fulfillments onto the referenced purchase orders. The identifier of the
// stored document is returned even when propagation fails, so callers can
// retry the propagation without recreating the record.
func (s *Service) Create(ctx context.Context, req CreateRequest) (uuid.UUID, error) {
	do, err := s.validator.Validate(ctx, req, uuid.Nil)
	if err != nil {
		return uuid.Nil, err
	}
	do.ID = uuid.New()
	do.Stamp.Stamp(s.actor(ctx), s.now())

	if _, err := s.store.Insert(ctx, do); err != nil {
		return uuid.Nil, fmt.Errorf("insert delivery order: %w", err)
	}
	s.recordAudit(ctx, auditActionCreate, do)

	if err := s.propagate(ctx, do); err != nil {
		return do.ID, err
	}
	return do.ID, nil
}

// Post re-validates the submitted document and marks it posted. The payload
// travels with the request because the record may have been edited since
// creation.
func (s *Service) Post(ctx context.Context, id uuid.UUID, req CreateRequest) error {
	existing, err := s.getActive(ctx, id)
	if err != nil {
		return err
	}

	do, err := s.validator.Validate(ctx, req, id)
	if err != nil {
		return err
	}
	do.Stamp = existing.Stamp
	do.Stamp.Stamp(s.actor(ctx), s.now())
	do.IsPosted = true

	if _, err := s.store.Update(ctx, do); err != nil {
		return fmt.Errorf("post delivery order %s: %w", id, err)
	}
	s.recordAudit(ctx, auditActionPost, do)
	return nil
}

// Reapply re-runs fulfillment propagation for a stored delivery order. Ledger
// deduplication makes the operation idempotent, so it is safe to run after a
// partial failure or from the background queue.
func (s *Service) Reapply(ctx context.Context, id uuid.UUID) error {
	do, err := s.getActive(ctx, id)
	if err != nil {
		return err
	}
	if err := s.propagate(ctx, do); err != nil {
		return err
	}
	s.recordAudit(ctx, auditActionReapply, do)
	return nil
}

// GetByID loads a delivery order. Soft-deleted records are reported as absent.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*DeliveryOrder, error) {
	return s.getActive(ctx, id)
}

// Query runs the filtered report over number, supplier and supplier delivery
// date range.
func (s *Service) Query(ctx context.Context, filter QueryFilter) ([]DeliveryOrder, error) {
	orders, err := s.store.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query delivery orders: %w", err)
	}
	return orders, nil
}

// List returns a paginated keyword listing.
func (s *Service) List(ctx context.Context, req ListRequest) ([]DeliveryOrder, int, error) {
	orders, total, err := s.store.List(ctx, req)
	if err != nil {
		return nil, 0, fmt.Errorf("list delivery orders: %w", err)
	}
	return orders, total, nil
}

// Delete soft-deletes a delivery order. The ledger entries it produced stay in
// place; removal only hides the document from lookups and reports.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	do, err := s.getActive(ctx, id)
	if err != nil {
		return err
	}
	do.IsDeleted = true
	do.Stamp.Stamp(s.actor(ctx), s.now())
	if _, err := s.store.Update(ctx, do); err != nil {
		return fmt.Errorf("delete delivery order %s: %w", id, err)
	}
	s.recordAudit(ctx, auditActionDelete, do)
	return nil
}

// propagate applies the fulfillments and records the outcome. Failures other
// than invariant violations enqueue a background reapply, since the ledger
// dedupe lets it finish the remainder safely.
func (s *Service) propagate(ctx context.Context, do *DeliveryOrder) error {
	err := s.propagator.Apply(ctx, do)
	if err == nil {
		s.metrics.ObservePropagation("success")
		return nil
	}
	s.metrics.ObservePropagation("failure")

	if errors.Is(err, ErrInvariantViolation) {
		s.logger.ErrorContext(ctx, "fulfillment propagation hit missing purchase order item",
			slog.String("delivery_order_id", do.ID.String()),
			slog.String("delivery_order_no", do.No),
			slog.Any("error", err))
		return err
	}

	s.logger.WarnContext(ctx, "fulfillment propagation failed",
		slog.String("delivery_order_id", do.ID.String()),
		slog.String("delivery_order_no", do.No),
		slog.Any("error", err))
	if s.tasks != nil {
		if enqErr := s.tasks.EnqueueFulfillmentReapply(ctx, do.ID); enqErr != nil {
			s.logger.ErrorContext(ctx, "enqueue fulfillment reapply failed",
				slog.String("delivery_order_id", do.ID.String()),
				slog.Any("error", enqErr))
		}
	}
	return err
}

func (s *Service) getActive(ctx context.Context, id uuid.UUID) (*DeliveryOrder, error) {
	do, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if do.IsDeleted {
		return nil, ErrNotFound
	}
	return do, nil
}

func (s *Service) actor(ctx context.Context) string {
	if actor := shared.ActorFromContext(ctx); actor != "" {
		return actor
	}
	return "system"
}

func (s *Service) recordAudit(ctx context.Context, action string, do *DeliveryOrder) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    s.actor(ctx),
		Action:   action,
		Entity:   auditEntity,
		EntityID: do.ID.String(),
		Meta:     map[string]any{"no": do.No},
		At:       s.now(),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "audit record failed",
			slog.String("action", action),
			slog.String("delivery_order_id", do.ID.String()),
			slog.Any("error", err))
	}
}
