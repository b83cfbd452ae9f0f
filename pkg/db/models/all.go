package models

// All lists every persisted model, in dependency order.
func All() []any {
	return []any{
		&Customer{},
		&Product{},
		&Order{},
		&OrderItem{},
		&Transaction{},
		&OrderTracking{},
		&InboxMessage{},
	}
}
