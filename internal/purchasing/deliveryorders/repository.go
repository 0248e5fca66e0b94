package deliveryorders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nusantara-erp/nusantara-erp/internal/shared"
)

// Store defines the persistence surface for delivery orders.
type Store interface {
	Insert(ctx context.Context, do *DeliveryOrder) (uuid.UUID, error)
	Update(ctx context.Context, do *DeliveryOrder) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*DeliveryOrder, error)
	// FindActiveByNo looks up a non-deleted delivery order by its business key,
	// matching case-insensitively and excluding the given id. Returns nil when
	// no record matches.
	FindActiveByNo(ctx context.Context, no string, excludeID uuid.UUID) (*DeliveryOrder, error)
	Query(ctx context.Context, filter QueryFilter) ([]DeliveryOrder, error)
	List(ctx context.Context, req ListRequest) ([]DeliveryOrder, int, error)
}

// repository implements Store using pgxpool. The document is stored as JSONB
// with the filter columns extracted alongside.
type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) Store {
	return &repository{pool: pool}
}

func (r *repository) Insert(ctx context.Context, do *DeliveryOrder) (uuid.UUID, error) {
	doc, err := json.Marshal(do)
	if err != nil {
		return uuid.Nil, fmt.Errorf("deliveryorders: encode: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO delivery_orders (id, no, date, supplier_do_date, supplier_id, is_posted, is_deleted, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`, do.ID, do.No, do.Date, do.SupplierDoDate, do.SupplierID, do.IsPosted, do.IsDeleted, doc)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return uuid.Nil, ErrDuplicateNo
		}
		return uuid.Nil, fmt.Errorf("deliveryorders: insert: %w", err)
	}
	return do.ID, nil
}

func (r *repository) Update(ctx context.Context, do *DeliveryOrder) (uuid.UUID, error) {
	doc, err := json.Marshal(do)
	if err != nil {
		return uuid.Nil, fmt.Errorf("deliveryorders: encode: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE delivery_orders
		SET no=$2, date=$3, supplier_do_date=$4, supplier_id=$5, is_posted=$6, is_deleted=$7, doc=$8, updated_at=NOW()
		WHERE id=$1
	`, do.ID, do.No, do.Date, do.SupplierDoDate, do.SupplierID, do.IsPosted, do.IsDeleted, doc)
	if err != nil {
		return uuid.Nil, fmt.Errorf("deliveryorders: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return uuid.Nil, ErrNotFound
	}
	return do.ID, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*DeliveryOrder, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `SELECT doc FROM delivery_orders WHERE id=$1`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("deliveryorders: get %s: %w", id, err)
	}
	return decodeDeliveryOrder(doc)
}

func (r *repository) FindActiveByNo(ctx context.Context, no string, excludeID uuid.UUID) (*DeliveryOrder, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `
		SELECT doc FROM delivery_orders
		WHERE lower(no) = lower($1) AND is_deleted = FALSE AND id <> $2
		LIMIT 1
	`, no, excludeID).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("deliveryorders: find by no: %w", err)
	}
	return decodeDeliveryOrder(doc)
}

// Query runs the delivery order report over number, supplier and the supplier
// delivery date range.
func (r *repository) Query(ctx context.Context, filter QueryFilter) ([]DeliveryOrder, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT doc FROM delivery_orders WHERE is_deleted = FALSE`)
	args := make([]any, 0, 4)

	if filter.No != "" {
		args = append(args, filter.No)
		sb.WriteString(` AND no = $` + strconv.Itoa(len(args)))
	}
	if filter.SupplierID != "" {
		args = append(args, filter.SupplierID)
		sb.WriteString(` AND supplier_id = $` + strconv.Itoa(len(args)))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		sb.WriteString(` AND supplier_do_date >= $` + strconv.Itoa(len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		sb.WriteString(` AND supplier_do_date <= $` + strconv.Itoa(len(args)))
	}
	sb.WriteString(` ORDER BY date DESC, no`)

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("deliveryorders: query: %w", err)
	}
	defer rows.Close()
	return collectDeliveryOrders(rows)
}

// List returns a paginated keyword listing. The keyword matches the delivery
// order number, the supplier name, or any item's external purchase order number.
func (r *repository) List(ctx context.Context, req ListRequest) ([]DeliveryOrder, int, error) {
	perPage := req.PerPage
	if perPage <= 0 {
		perPage = shared.DefaultPerPage
	}
	if perPage > shared.MaxPerPage {
		perPage = shared.MaxPerPage
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}

	where := `WHERE is_deleted = FALSE`
	args := make([]any, 0, 3)
	if req.Keyword != "" {
		args = append(args, "%"+req.Keyword+"%")
		where += ` AND (
			no ILIKE $1
			OR doc->'supplier'->>'name' ILIKE $1
			OR EXISTS (
				SELECT 1 FROM jsonb_array_elements(doc->'items') AS item
				WHERE item->'purchase_order_external'->>'no' ILIKE $1
			)
		)`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM delivery_orders `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("deliveryorders: count: %w", err)
	}

	args = append(args, perPage, (page-1)*perPage)
	query := fmt.Sprintf(`SELECT doc FROM delivery_orders %s ORDER BY date DESC, no LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("deliveryorders: list: %w", err)
	}
	defer rows.Close()

	orders, err := collectDeliveryOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func decodeDeliveryOrder(doc []byte) (*DeliveryOrder, error) {
	var do DeliveryOrder
	if err := json.Unmarshal(doc, &do); err != nil {
		return nil, fmt.Errorf("deliveryorders: decode: %w", err)
	}
	return &do, nil
}

func collectDeliveryOrders(rows pgx.Rows) ([]DeliveryOrder, error) {
	var orders []DeliveryOrder
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("deliveryorders: scan: %w", err)
		}
		do, err := decodeDeliveryOrder(doc)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *do)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("deliveryorders: rows: %w", err)
	}
	return orders, nil
}
