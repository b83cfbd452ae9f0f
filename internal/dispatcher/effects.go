package dispatcher

import (
	"context"

	"github.com/angelmondragon/kwetupizza-backend/internal/conversation"
	"github.com/angelmondragon/kwetupizza-backend/internal/orders"
	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kwetupizza-backend/pkg/errors"
	"github.com/angelmondragon/kwetupizza-backend/pkg/whatsapp"
)

const (
	listSectionTitle = "Options"
	channelChat      = "whatsapp"
)

// run executes effects in order. Payment effects produce a follow-up command
// that is decided against the evolving context, and its effects are queued
// behind the remaining ones. Failed effects are logged; they never abort the
// turn. The whole run is bounded by the turn timeout so the context is saved
// while the identity lock is still held.
func (d *Dispatcher) run(ctx context.Context, t *turn, state conversation.Context, effects []conversation.Effect) conversation.Context {
	ctx, cancel := context.WithTimeout(ctx, d.turnTimeout)
	defer cancel()

	queue := append([]conversation.Effect(nil), effects...)
	for len(queue) > 0 {
		effect := queue[0]
		queue = queue[1:]

		feedback := d.execute(ctx, t, effect)
		if feedback == nil {
			continue
		}
		var more []conversation.Effect
		state, more = conversation.Decide(state, *feedback, t.env)
		queue = append(queue, more...)
	}
	return state
}

func (d *Dispatcher) execute(ctx context.Context, t *turn, effect conversation.Effect) *conversation.Command {
	switch e := effect.(type) {
	case conversation.SendMessage:
		d.send(ctx, t, e)
	case conversation.CreateCustomer:
		customer, err := d.customers.Create(ctx, e.Name, e.Email, t.identity)
		if err != nil {
			d.logg.Error(ctx, "failed to create customer", err)
			return nil
		}
		t.setCustomer(customer)
	case conversation.PlaceOrderAndCharge:
		return d.placeAndCharge(ctx, t, e)
	case conversation.RetryCharge:
		cmd := d.charge(ctx, t, e.OrderID, e.Phone, e.Provider)
		return &cmd
	case conversation.CancelOrder:
		if _, err := d.orders.Cancel(ctx, e.OrderID, e.Reason); err != nil {
			d.logg.Error(d.logg.WithOrderID(ctx, e.OrderID), "failed to cancel order", err)
		}
	case conversation.AlertAdmin:
		if d.alerter == nil {
			return nil
		}
		if err := d.alerter.AlertAdmin(ctx, e.Text); err != nil {
			d.logg.Error(ctx, "failed to alert admin", err)
		}
	default:
		d.logg.Warn(ctx, "unknown conversation effect ignored")
	}
	return nil
}

func (d *Dispatcher) placeAndCharge(ctx context.Context, t *turn, e conversation.PlaceOrderAndCharge) *conversation.Command {
	input := orders.PlaceOrderInput{
		CustomerName:    e.Draft.CustomerName,
		CustomerPhone:   t.identity,
		DeliveryAddress: e.Draft.Address,
		Lines:           make([]orders.LineInput, 0, len(e.Draft.Lines)),
		Total:           e.Draft.Total,
		ScheduledTime:   e.Draft.ScheduledTime,
	}
	if t.customer != nil {
		id := t.customer.ID
		input.CustomerID = &id
		if input.CustomerName == "" {
			input.CustomerName = t.customer.Name
		}
	}
	for _, line := range e.Draft.Lines {
		input.Lines = append(input.Lines, orders.LineInput{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		})
	}

	order, err := d.orders.PlaceOrder(ctx, input)
	if err != nil {
		d.logg.Error(ctx, "failed to place order", err)
		d.metrics.Payment("place_order", "error")
		cmd := conversation.PaymentInitFailed(0, conversation.FailureOrderRejected)
		return &cmd
	}
	cmd := d.charge(d.logg.WithOrderID(ctx, order.ID), t, order.ID, e.Phone, e.Provider)
	return &cmd
}

func (d *Dispatcher) charge(ctx context.Context, t *turn, orderID uint64, phone string, provider enums.PaymentProvider) conversation.Command {
	input := orders.ChargeInput{OrderID: orderID, Phone: phone, Provider: provider}
	if t.customer != nil {
		input.Email = t.customer.Email
		input.FullName = t.customer.Name
	}
	attempt, err := d.orders.InitiatePayment(ctx, input)
	if err != nil {
		d.logg.Error(ctx, "failed to initiate payment", err)
		failure := conversation.FailureUnreachable
		switch {
		case pkgerrors.IsCode(err, pkgerrors.CodeGatewayRejected):
			failure = conversation.FailureRejected
		case pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
			failure = conversation.FailureOrderRejected
		}
		d.metrics.Payment("initiate", failure.String())
		return conversation.PaymentInitFailed(orderID, failure)
	}
	d.metrics.Payment("initiate", "ok")
	return conversation.PaymentInitiated(orderID, attempt.TxRef, attempt.Phone)
}

func (d *Dispatcher) send(ctx context.Context, t *turn, msg conversation.SendMessage) {
	var err error
	switch {
	case msg.List != nil && len(msg.List.Options) > 0:
		rows := make([]whatsapp.Row, 0, len(msg.List.Options))
		for _, opt := range msg.List.Options {
			rows = append(rows, whatsapp.Row{ID: opt.ID, Title: opt.Title})
		}
		err = d.messenger.SendInteractive(ctx, t.meta, t.identity, whatsapp.Interactive{
			Body:       msg.Text,
			ListButton: msg.List.Button,
			Sections:   []whatsapp.Section{{Title: listSectionTitle, Rows: rows}},
		})
	case len(msg.Buttons) > 0:
		buttons := make([]whatsapp.Button, 0, len(msg.Buttons))
		for _, b := range msg.Buttons {
			buttons = append(buttons, whatsapp.Button{ID: b.ID, Title: b.Title})
		}
		err = d.messenger.SendInteractive(ctx, t.meta, t.identity, whatsapp.Interactive{Body: msg.Text, Buttons: buttons})
	default:
		err = d.messenger.SendText(ctx, t.meta, t.identity, msg.Text)
	}
	d.metrics.Outbound(channelChat, err)
	if err != nil {
		d.logg.Error(ctx, "failed to send chat reply", err)
	}
}
