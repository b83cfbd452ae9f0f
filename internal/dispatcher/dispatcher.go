package dispatcher

import (
	"context"
	"time"

	"github.com/angelmondragon/kwetupizza-backend/internal/conversation"
	"github.com/angelmondragon/kwetupizza-backend/pkg/db/models"
	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kwetupizza-backend/pkg/errors"
	"github.com/angelmondragon/kwetupizza-backend/pkg/logger"
	"github.com/angelmondragon/kwetupizza-backend/pkg/metrics"
	"github.com/angelmondragon/kwetupizza-backend/pkg/whatsapp"
)

const (
	defaultInactivityTimeout = 180 * time.Second
	defaultTurnTimeout       = 4 * time.Minute
)

// Params wires the dispatcher.
type Params struct {
	Store             ContextStore
	Messenger         Messenger
	Customers         Customers
	Menu              MenuSource
	Orders            Orders
	Alerter           AdminAlerter
	Inbox             Archiver
	Business          conversation.Business
	InactivityTimeout time.Duration
	TurnTimeout       time.Duration
	Logger            *logger.Logger
	Metrics           *metrics.BotMetrics
	Clock             func() time.Time
}

// Dispatcher runs one conversation turn per inbound event: it loads the
// context under the identity lock, lets the state machine decide, executes
// the resulting effects and saves the next context.
type Dispatcher struct {
	store       ContextStore
	messenger   Messenger
	customers   Customers
	menu        MenuSource
	orders      Orders
	alerter     AdminAlerter
	inbox       Archiver
	business    conversation.Business
	timeout     time.Duration
	turnTimeout time.Duration
	logg        *logger.Logger
	metrics     *metrics.BotMetrics
	now         func() time.Time
}

// turn carries the per-event values threaded into every outbound call.
type turn struct {
	identity string
	meta     whatsapp.Metadata
	env      conversation.Env
	customer *models.Customer
}

// New validates dependencies and builds a Dispatcher.
func New(p Params) (*Dispatcher, error) {
	switch {
	case p.Store == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "context store required")
	case p.Messenger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "messenger required")
	case p.Customers == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "customers service required")
	case p.Menu == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "menu source required")
	case p.Orders == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders service required")
	case p.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	d := &Dispatcher{
		store:       p.Store,
		messenger:   p.Messenger,
		customers:   p.Customers,
		menu:        p.Menu,
		orders:      p.Orders,
		alerter:     p.Alerter,
		inbox:       p.Inbox,
		business:    p.Business,
		timeout:     p.InactivityTimeout,
		turnTimeout: p.TurnTimeout,
		logg:        p.Logger,
		metrics:     p.Metrics,
		now:         p.Clock,
	}
	if d.timeout <= 0 {
		d.timeout = defaultInactivityTimeout
	}
	if d.turnTimeout <= 0 {
		d.turnTimeout = defaultTurnTimeout
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d, nil
}

// Handle processes one inbound chat event. An error means the context was
// not saved and the event may be processed again.
func (d *Dispatcher) Handle(ctx context.Context, event whatsapp.InboundEvent) error {
	identity, ok := conversation.NormalizePhone(event.From)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid sender phone").WithDetails(map[string]any{"from": event.From})
	}
	ctx = d.logg.WithPhone(ctx, identity)
	d.metrics.Inbound(string(event.Kind))

	unlock, err := d.store.Lock(ctx, identity)
	if err != nil {
		return err
	}
	defer d.release(ctx, unlock)

	current, err := d.store.Get(ctx, identity)
	if err != nil {
		return err
	}

	if current.LiveAgentRequested {
		if d.inbox == nil {
			return nil
		}
		return d.inbox.Archive(ctx, event, true)
	}

	t, err := d.newTurn(ctx, identity, event.Metadata, true)
	if err != nil {
		return err
	}

	var next conversation.Context
	var effects []conversation.Effect
	if current.Expired(t.env.Now, d.timeout) {
		d.logg.Info(ctx, "conversation expired after inactivity")
		next, effects = conversation.Restart(t.env)
	} else {
		next, effects = conversation.Decide(current, commandFor(event), t.env)
	}
	next = d.run(ctx, t, next, effects)

	d.metrics.Transition(current.Awaiting.String(), next.Awaiting.String())
	return d.store.Save(ctx, identity, next)
}

// ApplyPayment feeds a reconciled payment outcome into the identity's
// conversation.
func (d *Dispatcher) ApplyPayment(ctx context.Context, identity string, cmd conversation.Command) error {
	ctx = d.logg.WithPhone(ctx, identity)
	unlock, err := d.store.Lock(ctx, identity)
	if err != nil {
		return err
	}
	defer d.release(ctx, unlock)

	current, err := d.store.Get(ctx, identity)
	if err != nil {
		return err
	}
	t, err := d.newTurn(ctx, identity, whatsapp.Metadata{}, false)
	if err != nil {
		return err
	}
	next, effects := conversation.Decide(current, cmd, t.env)
	next = d.run(ctx, t, next, effects)

	d.metrics.Transition(current.Awaiting.String(), next.Awaiting.String())
	return d.store.Save(ctx, identity, next)
}

// Release ends an agent handoff by clearing the identity's context.
func (d *Dispatcher) Release(ctx context.Context, identity string) error {
	ctx = d.logg.WithPhone(ctx, identity)
	unlock, err := d.store.Lock(ctx, identity)
	if err != nil {
		return err
	}
	defer d.release(ctx, unlock)
	if err := d.store.Clear(ctx, identity); err != nil {
		return err
	}
	d.logg.Info(ctx, "conversation released from agent handoff")
	return nil
}

func (d *Dispatcher) release(ctx context.Context, unlock func(context.Context) error) {
	if err := unlock(context.WithoutCancel(ctx)); err != nil {
		d.logg.Error(ctx, "failed to release conversation lock", err)
	}
}

// newTurn loads what the state machine reads besides the context. The menu
// is only needed for customer input.
func (d *Dispatcher) newTurn(ctx context.Context, identity string, meta whatsapp.Metadata, withMenu bool) (*turn, error) {
	t := &turn{
		identity: identity,
		meta:     meta,
		env: conversation.Env{
			Now:      d.now(),
			Identity: identity,
			Business: d.business,
		},
	}
	customer, err := d.customers.FindByPhone(ctx, identity)
	if err != nil {
		return nil, err
	}
	t.setCustomer(customer)
	if withMenu {
		menu, err := d.menu.Menu(ctx)
		if err != nil {
			return nil, err
		}
		t.env.Menu = menu
	}
	return t, nil
}

func (t *turn) setCustomer(c *models.Customer) {
	t.customer = c
	if c == nil {
		t.env.Customer = conversation.Customer{}
		return
	}
	t.env.Customer = conversation.Customer{Known: true, Name: c.Name, Email: c.Email}
}

// commandFor normalizes an inbound event into a state machine command.
func commandFor(event whatsapp.InboundEvent) conversation.Command {
	switch event.Kind {
	case enums.InboundKindText:
		return conversation.TextCommand(event.Text)
	case enums.InboundKindButton, enums.InboundKindList:
		return conversation.ReplyCommand(event.ReplyID)
	case enums.InboundKindImage:
		return conversation.ImageCommand(event.Caption)
	case enums.InboundKindLocation:
		return conversation.LocationCommand(conversation.Location{
			Latitude:  event.Latitude,
			Longitude: event.Longitude,
			Name:      event.PlaceName,
			Address:   event.PlaceAddr,
		})
	default:
		return conversation.UnsupportedCommand()
	}
}
