package conversation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kwetupizza-backend/internal/catalog"
	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
)

const cancelReason = "Cancelled by customer"

var (
	validate     = validator.New()
	clockPattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):([0-5][0-9])$`)
	listPrefixes = []string{"pizza_", "side_", "drink_", "dessert_"}
)

// Decide applies one command to the context and returns the next context
// together with the effects the caller must execute. It performs no I/O and
// never mutates its input.
func Decide(current Context, cmd Command, env Env) (Context, []Effect) {
	d := &decision{ctx: current.clone(), env: env}
	d.apply(cmd)
	return d.ctx, d.effects
}

// Restart discards a stale context and greets the customer again.
func Restart(env Env) (Context, []Effect) {
	return Context{}, []Effect{SendMessage{Text: greetingMessage(env)}}
}

type decision struct {
	ctx     Context
	env     Env
	effects []Effect
}

func (d *decision) emit(e Effect) {
	d.effects = append(d.effects, e)
}

func (d *decision) say(text string) {
	d.emit(SendMessage{Text: text})
}

func (d *decision) ask(text string, buttons []Choice) {
	d.emit(SendMessage{Text: text, Buttons: buttons})
}

func (d *decision) apply(cmd Command) {
	if cmd.Kind != CommandInput {
		d.payment(cmd)
		return
	}
	if d.ctx.LiveAgentRequested || d.ctx.Awaiting == StateLiveAgent {
		return
	}

	switch cmd.Global {
	case GlobalReset:
		d.ctx = Context{}
		d.say(greetingMessage(d.env))
		return
	case GlobalHelp:
		d.say(msgHelp)
		return
	case GlobalAgent:
		d.handoff()
		return
	}

	if cmd.Unsupported {
		d.say(msgUnsupported)
		return
	}
	if cmd.Blank {
		d.say(msgFallback)
		return
	}

	switch d.ctx.Awaiting {
	case StateIdle:
		d.idle(cmd)
	case StateCollectName:
		d.collectName(cmd)
	case StateCollectEmail:
		d.collectEmail(cmd)
	case StateMenuOrOrder:
		d.menuOrOrder(cmd)
	case StateMenuSelection:
		d.menuSelection(cmd)
	case StateQuantity:
		d.quantity(cmd)
	case StateScheduleTime:
		d.scheduleTime(cmd)
	case StateAddOrCheckout:
		d.addOrCheckout(cmd)
	case StateAddress:
		d.address(cmd)
	case StatePaymentProvider:
		d.paymentProvider(cmd)
	case StateUseWhatsAppNumber:
		d.useWhatsAppNumber(cmd)
	case StatePaymentPhone:
		d.paymentPhone(cmd)
	case StatePaymentConfirmation:
		d.say(msgAwaitingPayment)
	case StatePaymentRetry:
		d.paymentRetry(cmd)
	default:
		d.say(msgFallback)
	}
}

// idle greets whatever arrives; a product id is only read once the menu was
// shown.
func (d *decision) idle(Command) {
	if !d.env.Customer.Known {
		d.ctx.Awaiting = StateCollectName
		d.say(msgAskName)
		return
	}
	d.ctx.Awaiting = StateMenuSelection
	d.say(greetingMessage(d.env))
}

func (d *decision) collectName(cmd Command) {
	if cmd.ReplyID != "" || cmd.Text == "" || cmd.Location != nil {
		d.say(msgAskNameAgain)
		return
	}
	d.ctx.Name = capitalize(cmd.Text)
	d.ctx.Awaiting = StateCollectEmail
	d.say(askEmailMessage(d.ctx.Name))
}

func (d *decision) collectEmail(cmd Command) {
	email := strings.TrimSpace(cmd.Text)
	if cmd.ReplyID != "" || validate.Var(email, "required,email") != nil {
		d.say(msgInvalidEmail)
		return
	}
	name := d.customerName()
	d.emit(CreateCustomer{Name: name, Email: email})
	d.ctx.Awaiting = StateMenuOrOrder
	d.say(profileReadyMessage(name))
}

func (d *decision) menuOrOrder(cmd Command) {
	switch cmd.input() {
	case "menu", "order":
		d.ctx.Awaiting = StateMenuSelection
		d.say(fullMenuMessage(d.env))
		return
	}
	if id, ok := productSelection(cmd); ok {
		d.selectProduct(id)
		return
	}
	d.say(msgFallback)
}

func (d *decision) menuSelection(cmd Command) {
	if id, ok := productSelection(cmd); ok {
		d.selectProduct(id)
		return
	}
	switch cmd.input() {
	case "menu", "order", "add", "cart_add":
		d.say(fullMenuMessage(d.env))
		return
	case "checkout", "cart_checkout":
		if len(d.ctx.Cart.Finalized()) > 0 {
			d.checkout()
			return
		}
	}
	d.say(msgFallback)
}

func (d *decision) selectProduct(id uint64) {
	item, ok := d.env.Menu.Lookup(id)
	if !ok {
		d.say(msgProductMissing)
		return
	}
	product := lineProduct(item)
	if d.ctx.ScheduledTime != nil || d.env.Business.IsOpen(d.env.Now) {
		d.ctx.Cart = d.ctx.Cart.Append(DraftCartLine{LineProduct: product})
		d.ctx.Awaiting = StateQuantity
		d.ask(selectedMessage(item), quantityButtons)
		return
	}
	d.ctx.ScheduledProduct = &product
	d.ctx.Awaiting = StateScheduleTime
	d.say(outsideHoursMessage(d.env.Business))
}

func (d *decision) quantity(cmd Command) {
	draft, ok := d.ctx.Cart.LastDraft()
	if !ok {
		d.ctx.Awaiting = StateMenuSelection
		d.say(fullMenuMessage(d.env))
		return
	}
	qty, ok := parseQuantity(cmd, draft.ProductID)
	if !ok {
		d.ask(msgInvalidQuantity, quantityButtons)
		return
	}
	d.ctx.Cart, _ = d.ctx.Cart.QuantifyLast(qty)
	d.ctx.Awaiting = StateAddOrCheckout
	d.ask(fmt.Sprintf("%d x %s added to your cart.\n\n%s", qty, draft.ProductName, msgAddOrCheckout), cartButtons)
}

func (d *decision) scheduleTime(cmd Command) {
	if d.ctx.ScheduledProduct == nil {
		d.ctx.Awaiting = StateMenuSelection
		d.say(msgNothingToSchedule)
		return
	}
	at, ok := tomorrowAt(cmd.Normalized, d.env.Now, d.env.Business.location())
	if !ok {
		d.say(msgInvalidTime)
		return
	}
	if !at.After(d.env.Now) {
		d.say(msgPastTime)
		return
	}
	d.ctx.ScheduledTime = &at
	d.ctx.Cart = d.ctx.Cart.Append(DraftCartLine{LineProduct: *d.ctx.ScheduledProduct}.Quantify(1))
	d.ctx.Awaiting = StateAddOrCheckout
	d.ask(scheduledMessage(at), cartButtons)
}

func (d *decision) addOrCheckout(cmd Command) {
	switch cmd.input() {
	case "add", "cart_add":
		d.ctx.Awaiting = StateMenuSelection
		d.say(fullMenuMessage(d.env))
	case "checkout", "cart_checkout":
		d.checkout()
	default:
		d.ask(msgAddOrCheckoutHelp, cartButtons)
	}
}

func (d *decision) checkout() {
	frozen := d.ctx.Cart.Freeze()
	lines := frozen.Finalized()
	if len(lines) == 0 {
		d.ask(msgEmptyCart, cartButtons)
		return
	}
	total := frozen.Total()
	d.ctx.Cart = frozen
	d.ctx.Total = decimal.NewNullDecimal(total)
	d.ctx.Awaiting = StateAddress
	d.say(checkoutSummary(lines, catalog.FormatAmount(total), d.env.Business.Currency, d.ctx.ScheduledTime))
}

func (d *decision) address(cmd Command) {
	var address string
	switch {
	case cmd.Location != nil:
		address = cmd.Location.Label()
	case cmd.ReplyID == "":
		address = cmd.Text
	}
	if address == "" {
		d.say(msgAskAddress)
		return
	}
	d.ctx.Address = address
	d.ctx.Awaiting = StatePaymentProvider
	d.emit(SendMessage{Text: msgAskProvider, List: providerList()})
}

func (d *decision) paymentProvider(cmd Command) {
	provider, err := enums.ParsePaymentProvider(strings.TrimPrefix(cmd.input(), "payment_"))
	if err != nil {
		d.emit(SendMessage{Text: msgInvalidProvider, List: providerList()})
		return
	}
	d.ctx.PaymentProvider = provider
	d.ctx.Awaiting = StateUseWhatsAppNumber
	d.ask(useWhatsAppNumberMessage(d.env.Identity), phoneButtons)
}

func (d *decision) useWhatsAppNumber(cmd Command) {
	switch cmd.input() {
	case "yes", "y", "phone_yes":
		phone, ok := NormalizePhone(d.env.Identity)
		if !ok {
			phone = d.env.Identity
		}
		d.ctx.PaymentPhone = phone
		d.charge()
	case "no", "n", "phone_no":
		d.ctx.Awaiting = StatePaymentPhone
		d.say(msgAskPaymentPhone)
	default:
		d.ask(msgYesOrNo, phoneButtons)
	}
}

func (d *decision) paymentPhone(cmd Command) {
	phone, ok := NormalizePhone(cmd.Text)
	if cmd.ReplyID != "" || !ok {
		d.say(msgInvalidPhone)
		return
	}
	d.ctx.PaymentPhone = phone
	d.charge()
}

// charge leaves awaiting untouched; the shell reports the outcome back.
func (d *decision) charge() {
	if d.ctx.OrderID != 0 {
		d.emit(RetryCharge{OrderID: d.ctx.OrderID, Phone: d.ctx.PaymentPhone, Provider: d.ctx.PaymentProvider})
		return
	}
	total := d.ctx.Cart.Total()
	if d.ctx.Total.Valid {
		total = d.ctx.Total.Decimal
	}
	d.emit(PlaceOrderAndCharge{
		Draft: OrderDraft{
			CustomerName:  d.customerName(),
			Lines:         d.ctx.Cart.Finalized(),
			Address:       d.ctx.Address,
			Total:         total,
			ScheduledTime: d.ctx.ScheduledTime,
		},
		Phone:    d.ctx.PaymentPhone,
		Provider: d.ctx.PaymentProvider,
	})
}

func (d *decision) paymentRetry(cmd Command) {
	switch cmd.input() {
	case "retry", "payment_retry":
		if d.ctx.OrderID == 0 {
			d.ctx = Context{}
			d.say(msgOrderFailed)
			return
		}
		if d.ctx.PaymentPhone == "" {
			if phone, ok := NormalizePhone(d.env.Identity); ok {
				d.ctx.PaymentPhone = phone
			}
		}
		d.charge()
	case "cancel", "payment_cancel":
		if d.ctx.OrderID != 0 {
			d.emit(CancelOrder{OrderID: d.ctx.OrderID, Reason: cancelReason})
		}
		d.ctx = Context{}
		d.say(cancelledMessage(d.env.Business.SupportPhone))
	default:
		d.ask(msgRetryOrCancel, retryButtons)
	}
}

func (d *decision) handoff() {
	d.ctx.LiveAgentRequested = true
	d.ctx.Awaiting = StateLiveAgent
	d.say(msgHandoff)
	d.emit(AlertAdmin{Text: handoffAlert(d.customerName(), d.env.Identity)})
}

func (d *decision) payment(cmd Command) {
	p := cmd.Payment
	switch cmd.Kind {
	case CommandPaymentInitiated:
		d.ctx.OrderID = p.OrderID
		d.ctx.TxRef = p.TxRef
		if p.Phone != "" {
			d.ctx.PaymentPhone = p.Phone
		}
		d.ctx.Awaiting = StatePaymentConfirmation
		d.say(paymentSentMessage(d.ctx.PaymentPhone))
	case CommandPaymentInitFailed:
		if p.Failure == FailureOrderRejected || p.OrderID == 0 {
			d.say(msgOrderFailed)
			return
		}
		d.ctx.OrderID = p.OrderID
		d.ctx.Awaiting = StatePaymentRetry
		if p.Failure == FailureUnreachable {
			d.ask(paymentUnreachableMessage(d.env.Business.SupportPhone), retryButtons)
			return
		}
		d.ask(paymentRejectedMessage(d.env.Business.SupportPhone), retryButtons)
	case CommandPaymentSucceeded:
		if d.ctx.LiveAgentRequested {
			return
		}
		if d.ctx.OrderID == p.OrderID {
			d.ctx = Context{}
		}
	case CommandPaymentFailed:
		if d.ctx.LiveAgentRequested {
			return
		}
		if d.ctx.OrderID != p.OrderID && d.ctx.Awaiting != StateIdle {
			return
		}
		if d.ctx.OrderID != p.OrderID {
			d.ctx = Context{}
		}
		d.ctx.OrderID = p.OrderID
		d.ctx.TxRef = p.TxRef
		if d.ctx.PaymentPhone == "" {
			d.ctx.PaymentPhone = p.Phone
		}
		if d.ctx.PaymentProvider == "" {
			d.ctx.PaymentProvider = p.Provider
		}
		d.ctx.Awaiting = StatePaymentRetry
	}
}

func (d *decision) customerName() string {
	if d.ctx.Name != "" {
		return d.ctx.Name
	}
	return d.env.Customer.Name
}

func lineProduct(item catalog.Item) LineProduct {
	return LineProduct{ProductID: item.ID, ProductName: item.Name, UnitPrice: item.Price}
}

// productSelection accepts "3", list ids like "pizza_3", or a bare numeric id.
func productSelection(cmd Command) (uint64, bool) {
	raw := cmd.input()
	if cmd.ReplyID != "" {
		for _, prefix := range listPrefixes {
			if strings.HasPrefix(raw, prefix) {
				raw = strings.TrimPrefix(raw, prefix)
				break
			}
		}
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// parseQuantity accepts "2", "quantity_2" or "<product_id>_<quantity>".
func parseQuantity(cmd Command, productID uint64) (int, bool) {
	raw := cmd.input()
	if cmd.ReplyID != "" {
		if rest, ok := strings.CutPrefix(raw, "quantity_"); ok {
			raw = rest
		} else if pid, qty, ok := strings.Cut(raw, "_"); ok && pid == strconv.FormatUint(productID, 10) {
			raw = qty
		}
	}
	qty, err := strconv.Atoi(raw)
	if err != nil || qty <= 0 {
		return 0, false
	}
	return qty, true
}

// tomorrowAt resolves "HH:MM" to that wall-clock time on the next calendar day.
func tomorrowAt(value string, now time.Time, loc *time.Location) (time.Time, bool) {
	match := clockPattern.FindStringSubmatch(strings.TrimSpace(value))
	if match == nil {
		return time.Time{}, false
	}
	hour, _ := strconv.Atoi(match[1])
	minute, _ := strconv.Atoi(match[2])
	local := now.In(loc)
	y, m, day := local.Date()
	return time.Date(y, m, day+1, hour, minute, 0, 0, loc), true
}

func capitalize(name string) string {
	name = strings.TrimSpace(name)
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}
