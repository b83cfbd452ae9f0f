package enums

import (
	"fmt"
	"strings"
)

// TransactionStatus is the gateway-reported outcome of one payment attempt.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusSuccessful TransactionStatus = "successful"
	TransactionStatusFailed     TransactionStatus = "failed"
)

var validTransactionStatuses = []TransactionStatus{
	TransactionStatusPending,
	TransactionStatusSuccessful,
	TransactionStatusFailed,
}

// String implements fmt.Stringer.
func (t TransactionStatus) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TransactionStatus.
func (t TransactionStatus) IsValid() bool {
	for _, candidate := range validTransactionStatuses {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsFinal reports whether the outcome resolves the attempt.
func (t TransactionStatus) IsFinal() bool {
	return t == TransactionStatusSuccessful || t == TransactionStatusFailed
}

// ParseTransactionStatus converts gateway input (case-insensitive) into a TransactionStatus.
func ParseTransactionStatus(value string) (TransactionStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validTransactionStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction status %q", value)
}
