package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// OrderItemInput is one requested line when ingesting an order.
type OrderItemInput struct {
	ProductID int             `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// FulfillmentService ingests marketplace orders and walks each through the
// three-stage shipping wizard. Stock is consumed only at the final confirm,
// atomically across all lines.
type FulfillmentService interface {
	CreateOrder(ctx context.Context, farmCode, orderNumber, customerName, deliveryAddress string, items []OrderItemInput) (*Order, error)
	GetOrder(ctx context.Context, orderID int) (*Order, error)
	GetOrders(ctx context.Context, farmCode string, status *OrderStatus) ([]Order, error)

	// StartFulfillment opens the wizard for a pending order at the contents
	// verification stage.
	StartFulfillment(ctx context.Context, orderID int) (*FulfillmentJob, error)
	GetFulfillment(ctx context.Context, orderID int) (*FulfillmentJob, error)
	// AdvanceFulfillment moves the wizard one stage forward. Leaving the
	// carrier stage requires a carrier; completing the final stage consumes
	// stock for every line and hands the order to the carrier.
	AdvanceFulfillment(ctx context.Context, orderID int, carrier string) (*FulfillmentJob, error)
	ConfirmDelivery(ctx context.Context, orderID int) (*Order, error)
}

type fulfillmentService struct {
	pool *pgxpool.Pool
}

func NewFulfillmentService(pool *pgxpool.Pool) FulfillmentService {
	return &fulfillmentService{pool: pool}
}

const orderColumns = `
	id, farm_id, order_number, customer_name, status, total,
	delivery_address, delivery_provider, tracking_number, placed_at, delivered_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.FarmID, &o.OrderNumber, &o.CustomerName, &o.Status, &o.Total,
		&o.DeliveryAddress, &o.DeliveryProvider, &o.TrackingNumber, &o.PlacedAt, &o.DeliveredAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func fetchOrderItemsQ(ctx context.Context, q pgxRowQuerier, orderID int) ([]OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT i.id, i.order_id, i.product_id, p.name, i.quantity, i.unit_price, i.line_total
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id = $1
		ORDER BY i.id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, nil
}

// ── Ingest and queries ───────────────────────────────────────────────────────

func (s *fulfillmentService) CreateOrder(ctx context.Context, farmCode, orderNumber, customerName, deliveryAddress string, items []OrderItemInput) (*Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: order must have at least one item", ErrInvalidState)
	}
	if strings.TrimSpace(orderNumber) == "" {
		return nil, fmt.Errorf("%w: order number is required", ErrInvalidState)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	farmID, err := resolveFarmID(ctx, tx, farmCode)
	if err != nil {
		return nil, err
	}

	var total decimal.Decimal
	for i, it := range items {
		if !it.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: item %d quantity must be positive", ErrInvalidQuantity, i+1)
		}
		p, err := fetchProductQ(ctx, tx, it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		if p.FarmID != farmID {
			return nil, fmt.Errorf("%w: item %d product %d belongs to another farm", ErrInvalidState, i+1, it.ProductID)
		}
		total = total.Add(it.Quantity.Mul(it.UnitPrice))
	}

	o, err := scanOrder(tx.QueryRow(ctx, `
		INSERT INTO orders (farm_id, order_number, customer_name, status, total, delivery_address)
		VALUES ($1, $2, $3, 'pending', $4, $5)
		RETURNING`+orderColumns,
		farmID, orderNumber, customerName, total, deliveryAddress))
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	for _, it := range items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price, line_total)
			VALUES ($1, $2, $3, $4, $5)
		`, o.ID, it.ProductID, it.Quantity, it.UnitPrice, it.Quantity.Mul(it.UnitPrice)); err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s.GetOrder(ctx, o.ID)
}

func (s *fulfillmentService) GetOrder(ctx context.Context, orderID int) (*Order, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx, "SELECT"+orderColumns+" FROM orders WHERE id = $1", orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to fetch order %d: %w", orderID, err)
	}
	if o.Items, err = fetchOrderItemsQ(ctx, s.pool, orderID); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *fulfillmentService) GetOrders(ctx context.Context, farmCode string, status *OrderStatus) ([]Order, error) {
	farmID, err := resolveFarmID(ctx, s.pool, farmCode)
	if err != nil {
		return nil, err
	}

	query := "SELECT" + orderColumns + " FROM orders WHERE farm_id = $1"
	args := []any{farmID}
	if status != nil {
		query += " AND status = $2"
		args = append(args, *status)
	}
	query += " ORDER BY placed_at DESC, id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	for i := range orders {
		if orders[i].Items, err = fetchOrderItemsQ(ctx, s.pool, orders[i].ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// ── Wizard ───────────────────────────────────────────────────────────────────

func scanJob(row pgx.Row) (*FulfillmentJob, error) {
	var j FulfillmentJob
	err := row.Scan(&j.OrderID, &j.Stage, &j.Carrier, &j.StartedAt, &j.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *fulfillmentService) StartFulfillment(ctx context.Context, orderID int) (*FulfillmentJob, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status OrderStatus
	err = tx.QueryRow(ctx, "SELECT status FROM orders WHERE id = $1 FOR UPDATE", orderID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to fetch order %d: %w", orderID, err)
	}
	if status != OrderPending {
		return nil, fmt.Errorf("%w: order %d is %s, fulfillment starts from pending", ErrInvalidState, orderID, status)
	}

	j, err := scanJob(tx.QueryRow(ctx, `
		INSERT INTO fulfillment_jobs (order_id, stage)
		VALUES ($1, $2)
		RETURNING order_id, stage, carrier, started_at, completed_at
	`, orderID, StageVerifyContents))
	if err != nil {
		return nil, fmt.Errorf("failed to start fulfillment for order %d: %w", orderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return j, nil
}

func (s *fulfillmentService) GetFulfillment(ctx context.Context, orderID int) (*FulfillmentJob, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		"SELECT order_id, stage, carrier, started_at, completed_at FROM fulfillment_jobs WHERE order_id = $1", orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no fulfillment for order %d", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to fetch fulfillment for order %d: %w", orderID, err)
	}
	return j, nil
}

func (s *fulfillmentService) AdvanceFulfillment(ctx context.Context, orderID int, carrier string) (*FulfillmentJob, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	j, err := scanJob(tx.QueryRow(ctx,
		"SELECT order_id, stage, carrier, started_at, completed_at FROM fulfillment_jobs WHERE order_id = $1 FOR UPDATE", orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no fulfillment for order %d", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to fetch fulfillment for order %d: %w", orderID, err)
	}
	if j.CompletedAt != nil {
		return nil, fmt.Errorf("%w: fulfillment for order %d already completed", ErrInvalidState, orderID)
	}

	switch j.Stage {
	case StageVerifyContents:
		if _, err := tx.Exec(ctx,
			"UPDATE orders SET status = 'preparing' WHERE id = $1", orderID); err != nil {
			return nil, fmt.Errorf("failed to update order %d: %w", orderID, err)
		}
		if _, err := tx.Exec(ctx,
			"UPDATE fulfillment_jobs SET stage = $2 WHERE order_id = $1", orderID, StageSelectCarrier); err != nil {
			return nil, fmt.Errorf("failed to advance fulfillment for order %d: %w", orderID, err)
		}

	case StageSelectCarrier:
		if strings.TrimSpace(carrier) == "" {
			return nil, fmt.Errorf("%w: carrier is required to leave the carrier stage", ErrInvalidState)
		}
		if _, err := tx.Exec(ctx,
			"UPDATE orders SET status = 'ready_to_ship', delivery_provider = $2 WHERE id = $1", orderID, carrier); err != nil {
			return nil, fmt.Errorf("failed to update order %d: %w", orderID, err)
		}
		if _, err := tx.Exec(ctx,
			"UPDATE fulfillment_jobs SET stage = $2, carrier = $3 WHERE order_id = $1", orderID, StageConfirm, carrier); err != nil {
			return nil, fmt.Errorf("failed to advance fulfillment for order %d: %w", orderID, err)
		}

	case StageConfirm:
		if err := s.confirmShipmentTx(ctx, tx, orderID, j.Carrier); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%w: fulfillment for order %d is at unknown stage %d", ErrInvalidState, orderID, j.Stage)
	}

	j, err = scanJob(tx.QueryRow(ctx,
		"SELECT order_id, stage, carrier, started_at, completed_at FROM fulfillment_jobs WHERE order_id = $1", orderID))
	if err != nil {
		return nil, fmt.Errorf("failed to reload fulfillment for order %d: %w", orderID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return j, nil
}

// confirmShipmentTx consumes stock for every order line and marks the order
// shipping. Products are locked in ascending id order so concurrent confirms
// cannot deadlock; any shortage rolls the whole confirm back.
func (s *fulfillmentService) confirmShipmentTx(ctx context.Context, tx pgx.Tx, orderID int, carrier string) error {
	items, err := fetchOrderItemsQ(ctx, tx, orderID)
	if err != nil {
		return err
	}

	perProduct := make(map[int]decimal.Decimal)
	for _, it := range items {
		perProduct[it.ProductID] = perProduct[it.ProductID].Add(it.Quantity)
	}
	productIDs := make([]int, 0, len(perProduct))
	for id := range perProduct {
		productIDs = append(productIDs, id)
	}
	sort.Ints(productIDs)

	var orderNumber string
	if err := tx.QueryRow(ctx, "SELECT order_number FROM orders WHERE id = $1", orderID).Scan(&orderNumber); err != nil {
		return fmt.Errorf("failed to fetch order %d: %w", orderID, err)
	}

	for _, pid := range productIDs {
		p, err := lockProductTx(ctx, tx, pid)
		if err != nil {
			return err
		}
		if err := consumeTx(ctx, tx, p, perProduct[pid], MovementSale, "", orderNumber); err != nil {
			return err
		}
	}

	tracking := fmt.Sprintf("TRK-%s-%d", strings.ToUpper(strings.ReplaceAll(carrier, " ", "")), time.Now().Unix())
	if _, err := tx.Exec(ctx,
		"UPDATE orders SET status = 'shipping', tracking_number = $2 WHERE id = $1",
		orderID, tracking); err != nil {
		return fmt.Errorf("failed to mark order %d shipping: %w", orderID, err)
	}
	if _, err := tx.Exec(ctx,
		"UPDATE fulfillment_jobs SET completed_at = NOW() WHERE order_id = $1", orderID); err != nil {
		return fmt.Errorf("failed to complete fulfillment for order %d: %w", orderID, err)
	}
	return nil
}

func (s *fulfillmentService) ConfirmDelivery(ctx context.Context, orderID int) (*Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status OrderStatus
	err = tx.QueryRow(ctx, "SELECT status FROM orders WHERE id = $1 FOR UPDATE", orderID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to fetch order %d: %w", orderID, err)
	}
	if status != OrderShipping {
		return nil, fmt.Errorf("%w: order %d is %s, only shipping orders can be delivered", ErrInvalidState, orderID, status)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE orders SET status = 'delivered', delivered_at = NOW() WHERE id = $1", orderID); err != nil {
		return nil, fmt.Errorf("failed to mark order %d delivered: %w", orderID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s.GetOrder(ctx, orderID)
}
