package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/pizzeria/api/internal/database"
)

// OrderView is the JSON shape of an order in API responses and realtime events.
type OrderView struct {
	ID          uuid.UUID  `json:"id"`
	PizzaID     *uuid.UUID `json:"pizza_id"`
	Pizza       string     `json:"pizza"`
	Size        string     `json:"size"`
	Quantity    int32      `json:"quantity"`
	Amount      string     `json:"amount"`
	TableNumber string     `json:"table_number"`
	Status      string     `json:"status"`
	WaiterID    uuid.UUID  `json:"waiter_id"`
	Image       string     `json:"image"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func NewOrderView(o database.Order) OrderView {
	v := OrderView{
		ID:          o.ID,
		Pizza:       o.Pizza,
		Size:        string(o.Size),
		Quantity:    o.Quantity,
		Amount:      database.NumericToString(o.Amount),
		TableNumber: o.TableNumber,
		Status:      string(o.Status),
		WaiterID:    o.WaiterID,
		Image:       o.Image,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if o.PizzaID.Valid {
		id := uuid.UUID(o.PizzaID.Bytes)
		v.PizzaID = &id
	}
	return v
}

// PriceSizes maps each size to its price.
type PriceSizes struct {
	S string `json:"S"`
	M string `json:"M"`
	L string `json:"L"`
}

// PizzaView is the JSON shape of a pizza. PriceSizes is only filled for
// single-pizza reads.
type PizzaView struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	PriceSizeS  string      `json:"price_size_s"`
	PriceSizeM  string      `json:"price_size_m"`
	PriceSizeL  string      `json:"price_size_l"`
	PriceSizes  *PriceSizes `json:"price_sizes,omitempty"`
	PhotoURL    string      `json:"photo_url"`
	PhotoPath   string      `json:"photo_path"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func NewPizzaView(p database.Pizza) PizzaView {
	return PizzaView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		PriceSizeS:  database.NumericToString(p.PriceSizeS),
		PriceSizeM:  database.NumericToString(p.PriceSizeM),
		PriceSizeL:  database.NumericToString(p.PriceSizeL),
		PhotoURL:    p.PhotoUrl,
		PhotoPath:   p.PhotoPath,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// WithPriceSizes returns v with the size-keyed price map filled in.
func (v PizzaView) WithPriceSizes() PizzaView {
	v.PriceSizes = &PriceSizes{S: v.PriceSizeS, M: v.PriceSizeM, L: v.PriceSizeL}
	return v
}

// NotificationCounts is the admin badge payload.
type NotificationCounts struct {
	Prepared int64 `json:"prepared"`
}
