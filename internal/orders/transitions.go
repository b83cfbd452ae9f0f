package orders

import "github.com/angelmondragon/kwetupizza-backend/pkg/enums"

var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusScheduled, enums.OrderStatusConfirmed},
	enums.OrderStatusScheduled:  {enums.OrderStatusConfirmed},
	enums.OrderStatusConfirmed:  {enums.OrderStatusPreparing},
	enums.OrderStatusPreparing:  {enums.OrderStatusReady},
	enums.OrderStatusReady:      {enums.OrderStatusDelivering},
	enums.OrderStatusDelivering: {enums.OrderStatusDelivering, enums.OrderStatusDelivered},
	enums.OrderStatusDelivered:  {enums.OrderStatusCompleted},
}

// trackableStatuses are checked by the delay job.
var trackableStatuses = []enums.OrderStatus{
	enums.OrderStatusConfirmed,
	enums.OrderStatusPreparing,
	enums.OrderStatusReady,
	enums.OrderStatusDelivering,
}

// CanTransition reports whether an order may move from one status to another.
// Cancelled and failed are reachable from every non-terminal status.
func CanTransition(from, to enums.OrderStatus) bool {
	if !to.IsValid() {
		return false
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	if to == enums.OrderStatusCancelled || to == enums.OrderStatusFailed {
		return !from.IsTerminal()
	}
	return false
}
