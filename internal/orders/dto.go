package orders

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kwetupizza-backend/pkg/db/models"
	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
	"github.com/angelmondragon/kwetupizza-backend/pkg/pagination"
	"github.com/angelmondragon/kwetupizza-backend/pkg/types"
)

// LineInput is one finalized cart line.
type LineInput struct {
	ProductID   uint64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// Total is unit price times quantity.
func (l LineInput) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// PlaceOrderInput materializes a checked-out cart.
type PlaceOrderInput struct {
	CustomerID      *uint64
	CustomerName    string
	CustomerPhone   string
	DeliveryAddress string
	Lines           []LineInput
	Total           decimal.Decimal
	ScheduledTime   *time.Time
}

// ChargeInput starts a payment attempt for an order.
type ChargeInput struct {
	OrderID  uint64
	Phone    string
	Provider enums.PaymentProvider
	Email    string
	FullName string
}

// PaymentAttempt describes a charge the gateway accepted.
type PaymentAttempt struct {
	OrderID   uint64
	TxRef     string
	Attempt   int
	Phone     string
	Reference string
}

// Outcome is a gateway report about one tx_ref.
type Outcome struct {
	TxRef             string
	Status            enums.TransactionStatus
	TransactionID     string
	ProviderReference string
	Amount            decimal.NullDecimal
	Raw               json.RawMessage
}

// ReconcileResult reports what an Outcome changed. Applied is false for
// duplicates and superseded attempts.
type ReconcileResult struct {
	Order       *models.Order
	Transaction *models.Transaction
	Applied     bool
	Superseded  bool
}

// TransitionInput moves an order along the delivery lifecycle.
type TransitionInput struct {
	OrderID           uint64
	Status            enums.OrderStatus
	Description       string
	Location          *types.TrackingLocation
	EstimatedDelivery *time.Time
}

// ListParams filters the admin order listing.
type ListParams struct {
	pagination.Params
	Status *enums.OrderStatus
}

// OrderList is one page of orders, newest first.
type OrderList struct {
	Orders     []models.Order
	NextCursor string
}
