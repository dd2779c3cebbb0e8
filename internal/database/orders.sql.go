package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, pizza_id, pizza, size, quantity, amount, table_number, status, waiter_id, image, created_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.PizzaID,
		&i.Pizza,
		&i.Size,
		&i.Quantity,
		&i.Amount,
		&i.TableNumber,
		&i.Status,
		&i.WaiterID,
		&i.Image,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (pizza_id, pizza, size, quantity, amount, table_number, status, waiter_id, image)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	PizzaID     pgtype.UUID    `json:"pizza_id"`
	Pizza       string         `json:"pizza"`
	Size        PizzaSize      `json:"size"`
	Quantity    int32          `json:"quantity"`
	Amount      pgtype.Numeric `json:"amount"`
	TableNumber string         `json:"table_number"`
	Status      OrderStatus    `json:"status"`
	WaiterID    uuid.UUID      `json:"waiter_id"`
	Image       string         `json:"image"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.PizzaID,
		arg.Pizza,
		arg.Size,
		arg.Quantity,
		arg.Amount,
		arg.TableNumber,
		arg.Status,
		arg.WaiterID,
		arg.Image,
	)
	return scanOrder(row)
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, id)
	return scanOrder(row)
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + ` FROM orders
WHERE ($1::text IS NULL OR status = $1::text)
  AND ($2::uuid IS NULL OR waiter_id = $2::uuid)
ORDER BY created_at DESC, id
LIMIT $3 OFFSET $4`

type ListOrdersParams struct {
	Status   pgtype.Text `json:"status"`
	WaiterID pgtype.UUID `json:"waiter_id"`
	Limit    int32       `json:"limit"`
	Offset   int32       `json:"offset"`
}

// ListOrders returns orders newest first. Status and WaiterID filter only
// when valid.
func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.Status,
		arg.WaiterID,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders
SET status = $2, updated_at = now()
WHERE id = $1 AND status = $3
RETURNING ` + orderColumns

// UpdateOrderStatusParams.Status_2 is the status the caller expects the row
// to still have; pgx.ErrNoRows means it changed concurrently (or the order
// does not exist).
type UpdateOrderStatusParams struct {
	ID       uuid.UUID   `json:"id"`
	Status   OrderStatus `json:"status"`
	Status_2 OrderStatus `json:"status_2"`
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status, arg.Status_2)
	return scanOrder(row)
}

const countOrdersByStatus = `-- name: CountOrdersByStatus :one
SELECT count(*) FROM orders
WHERE status = $1`

func (q *Queries) CountOrdersByStatus(ctx context.Context, status OrderStatus) (int64, error) {
	row := q.db.QueryRow(ctx, countOrdersByStatus, status)
	var count int64
	err := row.Scan(&count)
	return count, err
}
