package repository

import (
	"context"
	"fmt"

	"telegram-storefront/internal/model"
)

const orderColumns = `id, user_id, product_id, product_title, price, created_at, status, delivery_data`

// OrderRepository handles order persistence. Orders are never updated or deleted.
type OrderRepository struct {
	db DBTX
}

// NewOrderRepository creates a new OrderRepository instance.
func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.ProductID,
		&o.ProductTitle,
		&o.Price,
		&o.Date,
		&o.Status,
		&o.DeliveryData,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// List returns orders newest first.
func (r *OrderRepository) List(ctx context.Context, filter OrderFilter) ([]*model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1::bigint = 0 OR user_id = $1)
		  AND ($2::text = '' OR product_id = $2)
		ORDER BY seq DESC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, filter.UserID, filter.ProductID, limitArg(filter.Limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// GetByID retrieves an order by id.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "get order")
	}
	return o, nil
}

// Create appends an order to the log.
func (r *OrderRepository) Create(ctx context.Context, order *model.Order) (*model.Order, error) {
	if err := validateOrder(order); err != nil {
		return nil, err
	}

	o := *order
	if o.ID == "" {
		o.ID = newID()
	}
	if o.Date.IsZero() {
		o.Date = now()
	}
	if o.Status == "" {
		o.Status = model.OrderStatusCompleted
	}

	query := `
		INSERT INTO orders (id, user_id, product_id, product_title, price, created_at, status, delivery_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + orderColumns

	created, err := scanOrder(r.db.QueryRow(ctx, query,
		o.ID,
		o.UserID,
		o.ProductID,
		o.ProductTitle,
		o.Price,
		o.Date,
		string(o.Status),
		o.DeliveryData,
	))
	if err != nil {
		return nil, mapError(err, "create order")
	}
	return created, nil
}
