package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus progresses strictly forward:
//
//	pending → preparing → ready_to_ship → shipping → delivered
//
// Orders are created by the marketplace checkout (outside this service);
// the fulfillment workflow owns every transition after pending.
type OrderStatus string

const (
	OrderPending     OrderStatus = "pending"
	OrderPreparing   OrderStatus = "preparing"
	OrderReadyToShip OrderStatus = "ready_to_ship"
	OrderShipping    OrderStatus = "shipping"
	OrderDelivered   OrderStatus = "delivered"
)

// Order is a customer order header.
type Order struct {
	ID               int             `json:"id"`
	FarmID           int             `json:"farm_id"`
	OrderNumber      string          `json:"order_number"`
	CustomerName     string          `json:"customer_name"`
	Status           OrderStatus     `json:"status"`
	Total            decimal.Decimal `json:"total"`
	DeliveryAddress  string          `json:"delivery_address"`
	DeliveryProvider string          `json:"delivery_provider,omitempty"`
	TrackingNumber   string          `json:"tracking_number,omitempty"`
	PlacedAt         time.Time       `json:"placed_at"`
	DeliveredAt      *time.Time      `json:"delivered_at,omitempty"`
	Items            []OrderItem     `json:"items"`
}

// OrderItem is one line on an order.
type OrderItem struct {
	ID          int             `json:"id"`
	OrderID     int             `json:"order_id"`
	ProductID   int             `json:"product_id"`
	ProductName string          `json:"product_name"` // joined from products
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// Fulfillment wizard stages. The final confirm consumes stock and hands the
// order to the carrier.
const (
	StageVerifyContents = 1
	StageSelectCarrier  = 2
	StageConfirm        = 3
)

// FulfillmentJob is the workflow object for one order's shipment, keyed by
// order id. It exists from Start until the final confirm completes.
type FulfillmentJob struct {
	OrderID     int        `json:"order_id"`
	Stage       int        `json:"stage"`
	Carrier     string     `json:"carrier,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
