package conversation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
)

// Effect is an instruction for the shell. Decide never performs I/O.
type Effect interface {
	effect()
}

// Choice is one button or list row.
type Choice struct {
	ID    string
	Title string
}

// ChoiceList renders as an interactive list.
type ChoiceList struct {
	Button  string
	Options []Choice
}

// SendMessage replies to the customer. At most three Buttons are rendered;
// List takes precedence when both are set.
type SendMessage struct {
	Text    string
	Buttons []Choice
	List    *ChoiceList
}

// CreateCustomer persists the captured identity.
type CreateCustomer struct {
	Name  string
	Email string
}

// OrderDraft is the checkout snapshot handed to the order orchestrator.
type OrderDraft struct {
	CustomerName  string
	Lines         []FinalizedCartLine
	Address       string
	Total         decimal.Decimal
	ScheduledTime *time.Time
}

// PlaceOrderAndCharge persists the order and starts the first payment
// attempt. The shell feeds the outcome back as a payment command.
type PlaceOrderAndCharge struct {
	Draft    OrderDraft
	Phone    string
	Provider enums.PaymentProvider
}

// RetryCharge starts the next payment attempt of an existing order.
type RetryCharge struct {
	OrderID  uint64
	Phone    string
	Provider enums.PaymentProvider
}

// CancelOrder cancels an order on the customer's request.
type CancelOrder struct {
	OrderID uint64
	Reason  string
}

// AlertAdmin notifies the business.
type AlertAdmin struct {
	Text string
}

func (SendMessage) effect()         {}
func (CreateCustomer) effect()      {}
func (PlaceOrderAndCharge) effect() {}
func (RetryCharge) effect()         {}
func (CancelOrder) effect()         {}
func (AlertAdmin) effect()          {}
