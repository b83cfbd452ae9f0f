package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/kwetupizza-backend/internal/catalog"
	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
)

const (
	msgFallback          = "Sorry, I didn't understand that. Type 'menu' to see available options."
	msgHelp              = "To place an order, type the item number from the menu.\nYou can type 'reset' to restart anytime.\nType 'agent' to chat with a person."
	msgUnsupported       = "Sorry, I don't understand that type of message. Please send text or use the menu options."
	msgAskName           = "Hi! We don't have your details on file. What's your name?"
	msgAskNameAgain      = "Please tell us your name."
	msgInvalidEmail      = "Please provide a valid email address."
	msgProductMissing    = "Sorry, the selected item is not available."
	msgInvalidQuantity   = "Please enter a valid quantity (a whole number greater than zero)."
	msgInvalidTime       = "Invalid time format. Please use HH:MM, e.g., 09:30."
	msgPastTime          = "That time is not in the future. Please try a valid future time."
	msgNothingToSchedule = "No product found to schedule. Please type 'menu' to start over."
	msgAddOrCheckout     = "Would you like to add more items or proceed to checkout? Type 'add' to add more or 'checkout' to proceed."
	msgAddOrCheckoutHelp = "Sorry, I didn't understand that. Type 'add' or 'checkout'."
	msgEmptyCart         = "Your cart is empty. Type 'add' to choose an item."
	msgAskAddress        = "Please provide your delivery address."
	msgAskProvider       = "Which Mobile Money network? Reply: Vodacom, Tigo, Halopesa, or Airtel."
	msgInvalidProvider   = "Invalid provider. Reply Vodacom, Tigo, Halopesa, or Airtel."
	msgYesOrNo           = "Please reply 'yes' or 'no'."
	msgAskPaymentPhone   = "Please provide the phone number you'd like to use for mobile money payment."
	msgInvalidPhone      = "Please provide a valid phone number, e.g., 0712345678 or 255712345678."
	msgAwaitingPayment   = "We're waiting for your payment confirmation. Please approve the prompt on your phone, or type 'reset' to start over."
	msgRetryOrCancel     = "Please reply with 'retry' to try again or 'cancel' to cancel the order."
	msgOrderFailed       = "Sorry, we couldn't process your order. Please try again later."
	msgHandoff           = "I'm connecting you with a customer service agent. Please wait while I transfer your chat. An agent will respond shortly."
)

var (
	quantityButtons = []Choice{{ID: "quantity_1", Title: "1"}, {ID: "quantity_2", Title: "2"}, {ID: "quantity_3", Title: "3"}}
	cartButtons     = []Choice{{ID: "cart_add", Title: "Add more"}, {ID: "cart_checkout", Title: "Checkout"}}
	phoneButtons    = []Choice{{ID: "phone_yes", Title: "Yes"}, {ID: "phone_no", Title: "No"}}
	retryButtons    = []Choice{{ID: "payment_retry", Title: "Retry"}, {ID: "payment_cancel", Title: "Cancel"}}
)

func providerList() *ChoiceList {
	providers := enums.PaymentProviders()
	options := make([]Choice, 0, len(providers))
	for _, p := range providers {
		options = append(options, Choice{ID: "payment_" + string(p), Title: p.Title()})
	}
	return &ChoiceList{Button: "Networks", Options: options}
}

func greetingMessage(env Env) string {
	return fmt.Sprintf(
		"Hello! Welcome to %s 🍕.\n\n%s\nPlease type the number of the item you'd like to order. If you need assistance, please contact us at %s.",
		env.Business.Name, env.Menu.Format(env.Business.Currency), env.Business.SupportPhone,
	)
}

func fullMenuMessage(env Env) string {
	return "Here's our menu. Please type the number of the item you'd like to order:\n\n" + env.Menu.Format(env.Business.Currency)
}

func askEmailMessage(name string) string {
	return fmt.Sprintf("Thanks, %s! Now please provide your email address.", name)
}

func profileReadyMessage(name string) string {
	return fmt.Sprintf("You're all set, %s! Type 'menu' to see options or 'order' to start an order.", name)
}

func selectedMessage(item catalog.Item) string {
	return fmt.Sprintf("You've selected %s. Please enter the quantity.", item.Name)
}

func outsideHoursMessage(b Business) string {
	return fmt.Sprintf(
		"Our ordering hours are between %s and %s. Would you like to schedule your order for tomorrow? If yes, please reply with your preferred delivery time (e.g., 09:00 or 14:30).",
		clock(b.Opens), clock(b.Closes),
	)
}

func scheduledMessage(at time.Time) string {
	return fmt.Sprintf("Your order is scheduled for %s tomorrow.\nWould you like to *add more items* or *checkout* now?", at.Format("15:04"))
}

func checkoutSummary(lines []FinalizedCartLine, total string, currency string, scheduled *time.Time) string {
	var b strings.Builder
	b.WriteString("Here is your order summary:\n")
	for _, line := range lines {
		fmt.Fprintf(&b, "%d x %s - %s %s\n", line.Quantity, line.ProductName, catalog.FormatAmount(line.LineTotal), currency)
	}
	fmt.Fprintf(&b, "\nTotal: %s %s\n", total, currency)
	if scheduled != nil {
		fmt.Fprintf(&b, "Scheduled Time: %s\n(Order is scheduled; proceed to confirm final details.)\n", scheduled.Format("Mon, 02 Jan 15:04"))
	}
	b.WriteString("\n" + msgAskAddress)
	return b.String()
}

func useWhatsAppNumberMessage(identity string) string {
	return fmt.Sprintf("Use your WhatsApp number (%s) for payment? Reply 'yes' or 'no'.", identity)
}

func paymentSentMessage(phone string) string {
	return fmt.Sprintf("Payment request has been sent to %s. Please confirm the payment.", phone)
}

func paymentUnreachableMessage(support string) string {
	return fmt.Sprintf("Error initiating the payment. Please check your internet connection and try again. For help, contact us at %s.", support)
}

func paymentRejectedMessage(support string) string {
	return fmt.Sprintf("Error initiating the payment. Please try again or reply 'retry' to attempt payment again. For help, contact us at %s.", support)
}

func cancelledMessage(support string) string {
	return fmt.Sprintf("Your order has been cancelled. If you need assistance, please contact us at %s.", support)
}

func handoffAlert(name, identity string) string {
	if name == "" {
		name = "A customer"
	}
	return fmt.Sprintf("🙋 Live agent requested by %s (%s).", name, identity)
}

func clock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}
