package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pizzeria/api/internal/database"
	"github.com/pizzeria/api/internal/enum"
	"github.com/pizzeria/api/internal/metrics"
	"github.com/pizzeria/api/internal/storage"
	"github.com/pizzeria/api/internal/ws"
	"github.com/shopspring/decimal"
)

// Errors returned by the order service.
var (
	ErrInvalidSize         = errors.New("select a size")
	ErrInvalidQuantity     = errors.New("select a quantity")
	ErrTableNumberRequired = errors.New("select a table number")
	ErrInvalidPizzaID      = errors.New("invalid pizza_id")
	ErrPizzaNotFound       = errors.New("pizza not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrAlreadyDelivered    = errors.New("order already delivered")
	ErrStatusChanged       = errors.New("order status changed, please retry")
	ErrAmountTooLarge      = errors.New("order total is too large")
)

// MaxQuantity is the largest number of pizzas on a single order.
const MaxQuantity = 1000

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to place and progress orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetPizza(ctx context.Context, id uuid.UUID) (database.Pizza, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	CountOrdersByStatus(ctx context.Context, status database.OrderStatus) (int64, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// nextStatus is the order status progression. Delivered has no successor.
var nextStatus = map[database.OrderStatus]database.OrderStatus{
	database.OrderStatusPreparing: database.OrderStatusPrepared,
	database.OrderStatusPrepared:  database.OrderStatusDelivered,
}

// NextStatus looks up the status an order moves to from current.
func NextStatus(current database.OrderStatus) (database.OrderStatus, bool) {
	next, ok := nextStatus[current]
	return next, ok
}

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	WaiterID    uuid.UUID
	PizzaID     string
	Size        string
	Quantity    int32
	TableNumber string
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	events   ws.Publisher
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, events ws.Publisher) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, events: events}
}

// CreateOrder prices the pizza for the chosen size and places the order in
// the preparing state. The pizza name and photo are copied onto the order.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (database.Order, error) {
	size, err := validateSize(req.Size)
	if err != nil {
		return database.Order{}, err
	}
	if req.Quantity <= 0 || req.Quantity > MaxQuantity {
		return database.Order{}, ErrInvalidQuantity
	}
	tableNumber := strings.TrimSpace(req.TableNumber)
	if tableNumber == "" {
		return database.Order{}, ErrTableNumberRequired
	}
	pizzaID, err := uuid.Parse(req.PizzaID)
	if err != nil {
		return database.Order{}, ErrInvalidPizzaID
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	pizza, err := store.GetPizza(ctx, pizzaID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrPizzaNotFound
		}
		return database.Order{}, fmt.Errorf("get pizza: %w", err)
	}

	price, _ := pizza.Price(size)
	amount := database.NumericToDecimal(price).Mul(decimal.NewFromInt32(req.Quantity)).Round(2)
	if !database.FitsMoney(amount) {
		return database.Order{}, ErrAmountTooLarge
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		PizzaID:     pgtype.UUID{Bytes: pizza.ID, Valid: true},
		Pizza:       pizza.Name,
		Size:        size,
		Quantity:    req.Quantity,
		Amount:      database.DecimalToNumeric(amount),
		TableNumber: tableNumber,
		Status:      database.OrderStatusPreparing,
		WaiterID:    req.WaiterID,
		Image:       pizza.PhotoUrl,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return database.Order{}, ErrPizzaNotFound
		}
		if isNumericOverflow(err) {
			return database.Order{}, ErrAmountTooLarge
		}
		return database.Order{}, fmt.Errorf("create order: %w", err)
	}

	var prepared int64
	notify := affectsPreparedCount("", order.Status)
	if notify {
		if prepared, err = store.CountOrdersByStatus(ctx, database.OrderStatusPrepared); err != nil {
			return database.Order{}, fmt.Errorf("count prepared orders: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	metrics.RecordOrderCreated(string(order.Size))
	s.publishOrder(ctx, enum.EventOrderCreated, order)
	if notify {
		s.publishNotifications(ctx, prepared)
	}
	return order, nil
}

// Advance moves the order to the next status in the progression.
func (s *OrderService) Advance(ctx context.Context, orderID uuid.UUID) (database.Order, error) {
	return s.transition(ctx, orderID, func(current database.OrderStatus) (database.OrderStatus, error) {
		next, ok := NextStatus(current)
		if !ok {
			return "", ErrAlreadyDelivered
		}
		return next, nil
	})
}

// Deliver marks the order delivered from any status before delivered.
func (s *OrderService) Deliver(ctx context.Context, orderID uuid.UUID) (database.Order, error) {
	return s.transition(ctx, orderID, func(current database.OrderStatus) (database.OrderStatus, error) {
		if _, ok := NextStatus(current); !ok {
			return "", ErrAlreadyDelivered
		}
		return database.OrderStatusDelivered, nil
	})
}

// transition reads the order, picks the target status and writes it only if
// the status is still the one read.
func (s *OrderService) transition(ctx context.Context, orderID uuid.UUID, target func(database.OrderStatus) (database.OrderStatus, error)) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	next, err := target(current.Status)
	if err != nil {
		return database.Order{}, err
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:       orderID,
		Status:   next,
		Status_2: current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The status changed between our read and write
			return database.Order{}, ErrStatusChanged
		}
		return database.Order{}, fmt.Errorf("update order status: %w", err)
	}

	var prepared int64
	notify := affectsPreparedCount(current.Status, updated.Status)
	if notify {
		if prepared, err = store.CountOrdersByStatus(ctx, database.OrderStatusPrepared); err != nil {
			return database.Order{}, fmt.Errorf("count prepared orders: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	metrics.RecordStatusChange(string(updated.Status))
	s.publishOrder(ctx, enum.EventOrderUpdated, updated)
	if notify {
		s.publishNotifications(ctx, prepared)
	}
	return updated, nil
}

// affectsPreparedCount reports whether a change between the two statuses moves
// the number of prepared orders. from is empty for inserts.
func affectsPreparedCount(from, to database.OrderStatus) bool {
	return (from == database.OrderStatusPrepared) != (to == database.OrderStatusPrepared)
}

func (s *OrderService) publishOrder(ctx context.Context, eventType string, o database.Order) {
	emit(ctx, s.events, eventType, NewOrderView(o), enum.RoomAdmins, ws.UserRoom(o.WaiterID.String()))
}

func (s *OrderService) publishNotifications(ctx context.Context, prepared int64) {
	emit(ctx, s.events, enum.EventNotificationsChanged, NotificationCounts{Prepared: prepared}, enum.RoomAdmins)
}

func validateSize(s string) (database.PizzaSize, error) {
	switch size := database.PizzaSize(strings.ToUpper(strings.TrimSpace(s))); size {
	case database.PizzaSizeS, database.PizzaSizeM, database.PizzaSizeL:
		return size, nil
	}
	return "", ErrInvalidSize
}

// IsValidationError reports whether err is a client input error (HTTP 400).
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidSize, ErrInvalidQuantity, ErrTableNumberRequired,
		ErrInvalidPizzaID, ErrAmountTooLarge,
		ErrNameRequired, ErrDescriptionRequired, ErrInvalidPrice,
		ErrPhotoRequired, storage.ErrUnsupportedType,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// isForeignKeyViolation checks for pgconn error code 23503.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// isNumericOverflow checks for pgconn error code 22003.
func isNumericOverflow(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22003"
}
