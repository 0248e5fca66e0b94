package externalorders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store defines external purchase order persistence used by propagation.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*PurchaseOrderExternal, error)
	Update(ctx context.Context, poe *PurchaseOrderExternal) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) Store {
	return &repository{pool: pool}
}

// GetByID loads an external purchase order document.
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*PurchaseOrderExternal, error) {
	var (
		doc     []byte
		version int64
	)
	err := r.pool.QueryRow(ctx, `SELECT doc, version FROM purchase_order_externals WHERE id=$1`, id).Scan(&doc, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("externalorders: get %s: %w", id, err)
	}
	var poe PurchaseOrderExternal
	if err := json.Unmarshal(doc, &poe); err != nil {
		return nil, fmt.Errorf("externalorders: decode %s: %w", id, err)
	}
	poe.Version = version
	return &poe, nil
}

// Update persists a recomputed external purchase order under the optimistic
// version check.
func (r *repository) Update(ctx context.Context, poe *PurchaseOrderExternal) error {
	doc, err := json.Marshal(poe)
	if err != nil {
		return fmt.Errorf("externalorders: encode %s: %w", poe.ID, err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE purchase_order_externals
		SET doc=$2, is_closed=$3, version=version+1, updated_at=NOW()
		WHERE id=$1 AND version=$4
	`, poe.ID, doc, poe.IsClosed, poe.Version)
	if err != nil {
		return fmt.Errorf("externalorders: update %s: %w", poe.ID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM purchase_order_externals WHERE id=$1)`, poe.ID).Scan(&exists); err != nil {
			return fmt.Errorf("externalorders: update %s: %w", poe.ID, err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	poe.Version++
	return nil
}
