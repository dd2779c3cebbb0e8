package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type OrderStatus string

const (
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusPrepared  OrderStatus = "prepared"
	OrderStatusDelivered OrderStatus = "delivered"
)

type PizzaSize string

const (
	PizzaSizeS PizzaSize = "S"
	PizzaSizeM PizzaSize = "M"
	PizzaSizeL PizzaSize = "L"
)

type Order struct {
	ID          uuid.UUID      `json:"id"`
	PizzaID     pgtype.UUID    `json:"pizza_id"`
	Pizza       string         `json:"pizza"`
	Size        PizzaSize      `json:"size"`
	Quantity    int32          `json:"quantity"`
	Amount      pgtype.Numeric `json:"amount"`
	TableNumber string         `json:"table_number"`
	Status      OrderStatus    `json:"status"`
	WaiterID    uuid.UUID      `json:"waiter_id"`
	Image       string         `json:"image"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type Pizza struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	PriceSizeS  pgtype.Numeric `json:"price_size_s"`
	PriceSizeM  pgtype.Numeric `json:"price_size_m"`
	PriceSizeL  pgtype.Numeric `json:"price_size_l"`
	PhotoUrl    string         `json:"photo_url"`
	PhotoPath   string         `json:"photo_path"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Price returns the price column for the given size.
func (p Pizza) Price(size PizzaSize) (pgtype.Numeric, bool) {
	switch size {
	case PizzaSizeS:
		return p.PriceSizeS, true
	case PizzaSizeM:
		return p.PriceSizeM, true
	case PizzaSizeL:
		return p.PriceSizeL, true
	}
	return pgtype.Numeric{}, false
}

type Profile struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"hashed_password"`
	IsAdmin        bool      `json:"is_admin"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
