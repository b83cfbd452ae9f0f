package dispatcher

import (
	"context"

	"github.com/angelmondragon/kwetupizza-backend/internal/catalog"
	"github.com/angelmondragon/kwetupizza-backend/internal/contextstore"
	"github.com/angelmondragon/kwetupizza-backend/internal/conversation"
	"github.com/angelmondragon/kwetupizza-backend/internal/orders"
	"github.com/angelmondragon/kwetupizza-backend/pkg/db/models"
	"github.com/angelmondragon/kwetupizza-backend/pkg/whatsapp"
)

// ContextStore persists conversation contexts under a per-identity lock.
type ContextStore interface {
	Lock(ctx context.Context, identity string) (contextstore.Unlock, error)
	Get(ctx context.Context, identity string) (conversation.Context, error)
	Save(ctx context.Context, identity string, c conversation.Context) error
	Clear(ctx context.Context, identity string) error
}

// Messenger sends chat replies.
type Messenger interface {
	SendText(ctx context.Context, meta whatsapp.Metadata, to, body string) error
	SendInteractive(ctx context.Context, meta whatsapp.Metadata, to string, msg whatsapp.Interactive) error
}

// Customers resolves and creates customer profiles.
type Customers interface {
	FindByPhone(ctx context.Context, phone string) (*models.Customer, error)
	Create(ctx context.Context, name, email, phone string) (*models.Customer, error)
}

// MenuSource loads the available menu.
type MenuSource interface {
	Menu(ctx context.Context) (catalog.Menu, error)
}

// Orders is the part of the order orchestrator driven by conversations.
type Orders interface {
	PlaceOrder(ctx context.Context, input orders.PlaceOrderInput) (*models.Order, error)
	InitiatePayment(ctx context.Context, input orders.ChargeInput) (*orders.PaymentAttempt, error)
	Cancel(ctx context.Context, orderID uint64, reason string) (*models.Order, error)
}

// AdminAlerter notifies the business.
type AdminAlerter interface {
	AlertAdmin(ctx context.Context, text string) error
}

// Archiver records inbound events while a conversation is handed off.
type Archiver interface {
	Archive(ctx context.Context, event whatsapp.InboundEvent, handedOff bool) error
}
