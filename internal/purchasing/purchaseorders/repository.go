package purchaseorders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store defines purchase order persistence used by propagation.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)
	Update(ctx context.Context, po *PurchaseOrder) error
}

// repository implements Store using pgxpool. Orders are persisted as JSONB
// documents with the closed flag and an optimistic version column extracted.
type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) Store {
	return &repository{pool: pool}
}

// GetByID loads a purchase order document.
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error) {
	var (
		doc     []byte
		version int64
	)
	err := r.pool.QueryRow(ctx, `SELECT doc, version FROM purchase_orders WHERE id=$1`, id).Scan(&doc, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("purchaseorders: get %s: %w", id, err)
	}
	var po PurchaseOrder
	if err := json.Unmarshal(doc, &po); err != nil {
		return nil, fmt.Errorf("purchaseorders: decode %s: %w", id, err)
	}
	po.Version = version
	return &po, nil
}

// Update persists a mutated purchase order. The write succeeds only when the
// stored version still matches the loaded one; a lost race returns
// ErrVersionConflict so the caller can reload and re-apply.
func (r *repository) Update(ctx context.Context, po *PurchaseOrder) error {
	doc, err := json.Marshal(po)
	if err != nil {
		return fmt.Errorf("purchaseorders: encode %s: %w", po.ID, err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE purchase_orders
		SET doc=$2, is_closed=$3, version=version+1, updated_at=NOW()
		WHERE id=$1 AND version=$4
	`, po.ID, doc, po.IsClosed, po.Version)
	if err != nil {
		return fmt.Errorf("purchaseorders: update %s: %w", po.ID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM purchase_orders WHERE id=$1)`, po.ID).Scan(&exists); err != nil {
			return fmt.Errorf("purchaseorders: update %s: %w", po.ID, err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	po.Version++
	return nil
}
