package conversation

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
)

// CommandKind separates customer input from results fed back by the shell.
type CommandKind uint8

const (
	CommandInput CommandKind = iota
	CommandPaymentInitiated
	CommandPaymentInitFailed
	CommandPaymentSucceeded
	CommandPaymentFailed
)

// Global is a keyword honoured in every state.
type Global uint8

const (
	GlobalNone Global = iota
	GlobalReset
	GlobalHelp
	GlobalAgent
)

var globalKeywords = map[string]Global{
	"reset":      GlobalReset,
	"restart":    GlobalReset,
	"help":       GlobalHelp,
	"agent":      GlobalAgent,
	"live agent": GlobalAgent,
	"human":      GlobalAgent,
}

// ParseGlobal recognizes global keywords in normalized text.
func ParseGlobal(normalized string) Global {
	return globalKeywords[normalized]
}

// PaymentFailure explains why a charge could not be started.
type PaymentFailure uint8

const (
	FailureNone PaymentFailure = iota
	FailureOrderRejected
	FailureUnreachable
	FailureRejected
)

func (f PaymentFailure) String() string {
	switch f {
	case FailureOrderRejected:
		return "order_rejected"
	case FailureUnreachable:
		return "unreachable"
	case FailureRejected:
		return "rejected"
	default:
		return "none"
	}
}

// Location is a shared map pin.
type Location struct {
	Latitude  float64
	Longitude float64
	Name      string
	Address   string
}

// Label renders the pin as a delivery address.
func (l Location) Label() string {
	parts := make([]string, 0, 2)
	for _, part := range []string{strings.TrimSpace(l.Name), strings.TrimSpace(l.Address)} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}
	return fmt.Sprintf("%.6f,%.6f", l.Latitude, l.Longitude)
}

// PaymentResult carries the outcome of a payment side effect or webhook.
type PaymentResult struct {
	OrderID  uint64
	TxRef    string
	Phone    string
	Provider enums.PaymentProvider
	Failure  PaymentFailure
}

// Command is one normalized input to Decide.
type Command struct {
	Kind        CommandKind
	Global      Global
	Text        string
	Normalized  string
	ReplyID     string
	Location    *Location
	Unsupported bool
	Blank       bool
	Payment     PaymentResult
}

// TextCommand normalizes free text. Original casing is kept in Text.
func TextCommand(text string) Command {
	trimmed := strings.TrimSpace(text)
	normalized := strings.ToLower(trimmed)
	return Command{
		Kind:       CommandInput,
		Global:     ParseGlobal(normalized),
		Text:       trimmed,
		Normalized: normalized,
	}
}

// ReplyCommand carries a button or list selection id unchanged.
func ReplyCommand(id string) Command {
	return Command{Kind: CommandInput, ReplyID: strings.TrimSpace(id)}
}

// LocationCommand carries a shared location.
func LocationCommand(loc Location) Command {
	return Command{Kind: CommandInput, Location: &loc}
}

// ImageCommand reads the caption as text. An image without a caption
// carries nothing to act on.
func ImageCommand(caption string) Command {
	if strings.TrimSpace(caption) == "" {
		return Command{Kind: CommandInput, Blank: true}
	}
	return TextCommand(caption)
}

// UnsupportedCommand marks a message type the bot cannot read.
func UnsupportedCommand() Command {
	return Command{Kind: CommandInput, Unsupported: true}
}

// PaymentInitiated reports that the gateway accepted a charge.
func PaymentInitiated(orderID uint64, txRef, phone string) Command {
	return Command{Kind: CommandPaymentInitiated, Payment: PaymentResult{OrderID: orderID, TxRef: txRef, Phone: phone}}
}

// PaymentInitFailed reports that no charge is in flight. orderID is zero when
// the order itself could not be placed.
func PaymentInitFailed(orderID uint64, failure PaymentFailure) Command {
	return Command{Kind: CommandPaymentInitFailed, Payment: PaymentResult{OrderID: orderID, Failure: failure}}
}

// PaymentSucceeded reports a reconciled successful charge.
func PaymentSucceeded(orderID uint64, txRef string) Command {
	return Command{Kind: CommandPaymentSucceeded, Payment: PaymentResult{OrderID: orderID, TxRef: txRef}}
}

// PaymentFailed reports a reconciled failed charge.
func PaymentFailed(orderID uint64, txRef, phone string, provider enums.PaymentProvider) Command {
	return Command{Kind: CommandPaymentFailed, Payment: PaymentResult{OrderID: orderID, TxRef: txRef, Phone: phone, Provider: provider}}
}

// input returns the comparable form: the reply id, or the lower-cased text.
func (c Command) input() string {
	if c.ReplyID != "" {
		return strings.ToLower(c.ReplyID)
	}
	return c.Normalized
}
