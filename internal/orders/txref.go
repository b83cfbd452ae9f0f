package orders

import (
	"fmt"
	"strconv"
	"strings"
)

const txRefPrefix = "order_"

// TxRef builds the payment correlation key for one attempt, e.g. order_42_a2.
func TxRef(orderID uint64, attempt int) string {
	return fmt.Sprintf("%s%d_a%d", txRefPrefix, orderID, attempt)
}

// ParseTxRef extracts the order id and attempt from a key built by TxRef.
func ParseTxRef(ref string) (uint64, int, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(ref), txRefPrefix)
	if !ok {
		return 0, 0, fmt.Errorf("tx_ref %q: missing prefix", ref)
	}
	idPart, attemptPart, ok := strings.Cut(rest, "_a")
	if !ok {
		return 0, 0, fmt.Errorf("tx_ref %q: missing attempt", ref)
	}
	orderID, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil || orderID == 0 {
		return 0, 0, fmt.Errorf("tx_ref %q: invalid order id", ref)
	}
	attempt, err := strconv.Atoi(attemptPart)
	if err != nil || attempt <= 0 {
		return 0, 0, fmt.Errorf("tx_ref %q: invalid attempt", ref)
	}
	return orderID, attempt, nil
}
