package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const pizzaColumns = `id, name, description, price_size_s, price_size_m, price_size_l, photo_url, photo_path, created_at, updated_at`

func scanPizza(row interface{ Scan(...interface{}) error }) (Pizza, error) {
	var i Pizza
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.PriceSizeS,
		&i.PriceSizeM,
		&i.PriceSizeL,
		&i.PhotoUrl,
		&i.PhotoPath,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listPizzas = `-- name: ListPizzas :many
SELECT ` + pizzaColumns + ` FROM pizzas
WHERE name ILIKE '%' || $1::text || '%'
ORDER BY name, id`

// ListPizzas returns pizzas whose name contains search, case-insensitively.
// An empty search matches every pizza.
func (q *Queries) ListPizzas(ctx context.Context, search string) ([]Pizza, error) {
	rows, err := q.db.Query(ctx, listPizzas, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Pizza{}
	for rows.Next() {
		i, err := scanPizza(rows)
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

const getPizza = `-- name: GetPizza :one
SELECT ` + pizzaColumns + ` FROM pizzas
WHERE id = $1`

func (q *Queries) GetPizza(ctx context.Context, id uuid.UUID) (Pizza, error) {
	row := q.db.QueryRow(ctx, getPizza, id)
	return scanPizza(row)
}

const getPizzaByName = `-- name: GetPizzaByName :one
SELECT ` + pizzaColumns + ` FROM pizzas
WHERE lower(name) = lower($1)
LIMIT 1`

func (q *Queries) GetPizzaByName(ctx context.Context, name string) (Pizza, error) {
	row := q.db.QueryRow(ctx, getPizzaByName, name)
	return scanPizza(row)
}

const createPizza = `-- name: CreatePizza :one
INSERT INTO pizzas (name, description, price_size_s, price_size_m, price_size_l, photo_url, photo_path)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + pizzaColumns

type CreatePizzaParams struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	PriceSizeS  pgtype.Numeric `json:"price_size_s"`
	PriceSizeM  pgtype.Numeric `json:"price_size_m"`
	PriceSizeL  pgtype.Numeric `json:"price_size_l"`
	PhotoUrl    string         `json:"photo_url"`
	PhotoPath   string         `json:"photo_path"`
}

func (q *Queries) CreatePizza(ctx context.Context, arg CreatePizzaParams) (Pizza, error) {
	row := q.db.QueryRow(ctx, createPizza,
		arg.Name,
		arg.Description,
		arg.PriceSizeS,
		arg.PriceSizeM,
		arg.PriceSizeL,
		arg.PhotoUrl,
		arg.PhotoPath,
	)
	return scanPizza(row)
}

const updatePizza = `-- name: UpdatePizza :one
UPDATE pizzas
SET name = $2,
    description = $3,
    price_size_s = $4,
    price_size_m = $5,
    price_size_l = $6,
    photo_url = $7,
    photo_path = $8,
    updated_at = now()
WHERE id = $1
RETURNING ` + pizzaColumns

type UpdatePizzaParams struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	PriceSizeS  pgtype.Numeric `json:"price_size_s"`
	PriceSizeM  pgtype.Numeric `json:"price_size_m"`
	PriceSizeL  pgtype.Numeric `json:"price_size_l"`
	PhotoUrl    string         `json:"photo_url"`
	PhotoPath   string         `json:"photo_path"`
}

func (q *Queries) UpdatePizza(ctx context.Context, arg UpdatePizzaParams) (Pizza, error) {
	row := q.db.QueryRow(ctx, updatePizza,
		arg.ID,
		arg.Name,
		arg.Description,
		arg.PriceSizeS,
		arg.PriceSizeM,
		arg.PriceSizeL,
		arg.PhotoUrl,
		arg.PhotoPath,
	)
	return scanPizza(row)
}

const deletePizza = `-- name: DeletePizza :one
DELETE FROM pizzas
WHERE id = $1
RETURNING ` + pizzaColumns

func (q *Queries) DeletePizza(ctx context.Context, id uuid.UUID) (Pizza, error) {
	row := q.db.QueryRow(ctx, deletePizza, id)
	return scanPizza(row)
}
