package enums

import (
	"fmt"
	"strings"
)

// PaymentProvider is a Tanzanian mobile-money network offered at checkout.
type PaymentProvider string

const (
	PaymentProviderVodacom  PaymentProvider = "vodacom"
	PaymentProviderTigo     PaymentProvider = "tigo"
	PaymentProviderHalopesa PaymentProvider = "halopesa"
	PaymentProviderAirtel   PaymentProvider = "airtel"
)

var validPaymentProviders = []PaymentProvider{
	PaymentProviderVodacom,
	PaymentProviderTigo,
	PaymentProviderHalopesa,
	PaymentProviderAirtel,
}

// gateway network codes for mobile_money_tanzania charges
var providerNetworks = map[PaymentProvider]string{
	PaymentProviderVodacom:  "vodafone",
	PaymentProviderTigo:     "tigo",
	PaymentProviderHalopesa: "halotel",
	PaymentProviderAirtel:   "airtel",
}

// PaymentProviders lists the providers in display order.
func PaymentProviders() []PaymentProvider {
	out := make([]PaymentProvider, len(validPaymentProviders))
	copy(out, validPaymentProviders)
	return out
}

// String implements fmt.Stringer.
func (p PaymentProvider) String() string {
	return string(p)
}

// Title returns the customer-facing provider name.
func (p PaymentProvider) Title() string {
	if p == "" {
		return ""
	}
	return strings.ToUpper(string(p[:1])) + string(p[1:])
}

// IsValid reports whether the value is a known PaymentProvider.
func (p PaymentProvider) IsValid() bool {
	_, ok := providerNetworks[p]
	return ok
}

// Network returns the gateway network code for the provider.
func (p PaymentProvider) Network() string {
	return providerNetworks[p]
}

// ParsePaymentProvider converts case-insensitive input into a PaymentProvider.
func ParsePaymentProvider(value string) (PaymentProvider, error) {
	normalized := PaymentProvider(strings.ToLower(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid payment provider %q", value)
}
