package conversation

import "fmt"

// State names the input the machine will parse next. The zero value is idle.
type State uint8

const (
	StateIdle State = iota
	StateCollectName
	StateCollectEmail
	StateMenuOrOrder
	StateMenuSelection
	StateQuantity
	StateScheduleTime
	StateAddOrCheckout
	StateAddress
	StatePaymentProvider
	StateUseWhatsAppNumber
	StatePaymentPhone
	StatePaymentConfirmation
	StatePaymentRetry
	StateLiveAgent
	stateCount
)

var stateNames = [stateCount]string{
	StateIdle:                "",
	StateCollectName:         "collect_name",
	StateCollectEmail:        "collect_email",
	StateMenuOrOrder:         "menu_or_order",
	StateMenuSelection:       "menu_selection",
	StateQuantity:            "quantity",
	StateScheduleTime:        "schedule_time",
	StateAddOrCheckout:       "add_or_checkout",
	StateAddress:             "address",
	StatePaymentProvider:     "payment_provider",
	StateUseWhatsAppNumber:   "use_whatsapp_number",
	StatePaymentPhone:        "payment_phone",
	StatePaymentConfirmation: "payment_confirmation",
	StatePaymentRetry:        "payment_retry",
	StateLiveAgent:           "live_agent",
}

// String implements fmt.Stringer; idle renders as "idle".
func (s State) String() string {
	if s == StateIdle {
		return "idle"
	}
	if s < stateCount {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// MarshalText persists idle as the empty string.
func (s State) MarshalText() ([]byte, error) {
	if s >= stateCount {
		return nil, fmt.Errorf("unknown conversation state %d", uint8(s))
	}
	return []byte(stateNames[s]), nil
}

// UnmarshalText accepts the persisted names plus "idle".
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseState converts a persisted name into a State.
func ParseState(value string) (State, error) {
	if value == "" || value == "idle" {
		return StateIdle, nil
	}
	for i, name := range stateNames {
		if name == value {
			return State(i), nil
		}
	}
	return StateIdle, fmt.Errorf("unknown conversation state %q", value)
}
