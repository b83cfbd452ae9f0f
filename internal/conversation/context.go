package conversation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
)

// Context is the persisted conversation state of one customer identity.
type Context struct {
	Awaiting           State                 `json:"awaiting"`
	Cart               Cart                  `json:"cart,omitempty"`
	Name               string                `json:"name,omitempty"`
	Address            string                `json:"address,omitempty"`
	PaymentProvider    enums.PaymentProvider `json:"payment_provider,omitempty"`
	PaymentPhone       string                `json:"payment_phone,omitempty"`
	Total              decimal.NullDecimal   `json:"total"`
	ScheduledProduct   *LineProduct          `json:"scheduled_product,omitempty"`
	ScheduledTime      *time.Time            `json:"scheduled_time,omitempty"`
	OrderID            uint64                `json:"order_id,omitempty"`
	TxRef              string                `json:"tx_ref,omitempty"`
	LiveAgentRequested bool                  `json:"live_agent_requested,omitempty"`
	LastActivity       time.Time             `json:"last_activity"`
}

// Idle reports whether the context holds nothing worth persisting.
func (c Context) Idle() bool {
	return c.Awaiting == StateIdle && len(c.Cart) == 0 && !c.LiveAgentRequested && c.OrderID == 0
}

// Expired reports whether the inactivity window has elapsed. Idle contexts
// never expire.
func (c Context) Expired(now time.Time, timeout time.Duration) bool {
	if c.Idle() || c.LastActivity.IsZero() || timeout <= 0 {
		return false
	}
	return now.Sub(c.LastActivity) > timeout
}

func (c Context) clone() Context {
	out := c
	if c.Cart != nil {
		out.Cart = append(Cart(nil), c.Cart...)
	}
	if c.ScheduledProduct != nil {
		p := *c.ScheduledProduct
		out.ScheduledProduct = &p
	}
	if c.ScheduledTime != nil {
		t := *c.ScheduledTime
		out.ScheduledTime = &t
	}
	return out
}
