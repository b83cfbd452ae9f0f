package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/kwetupizza-backend/internal/catalog"
	"github.com/angelmondragon/kwetupizza-backend/pkg/db/models"
	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
)

var statusMessages = map[enums.OrderStatus]string{
	enums.OrderStatusPending:    "🕒 Your order has been received and is pending confirmation.",
	enums.OrderStatusScheduled:  "📅 Your order has been scheduled and will be prepared at the requested time.",
	enums.OrderStatusConfirmed:  "✅ Your order has been confirmed and will be prepared soon.",
	enums.OrderStatusPreparing:  "👨‍🍳 Your order is being prepared with care.",
	enums.OrderStatusReady:      "✨ Your order is ready for delivery.",
	enums.OrderStatusDelivering: "🚚 Your order is on the way to you.",
	enums.OrderStatusDelivered:  "🎉 Your order has been delivered. Enjoy!",
	enums.OrderStatusCancelled:  "❌ Order has been cancelled.",
	enums.OrderStatusFailed:     "⚠️ We could not complete your order.",
}

// StatusMessage renders the customer copy for a tracking entry.
func StatusMessage(order *models.Order, entry *models.OrderTracking, business string, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order #%d Update:\n", order.ID)
	switch text, ok := statusMessages[entry.Status]; {
	case entry.Status == enums.OrderStatusCompleted:
		fmt.Fprintf(&b, "✅ Order completed. Thank you for choosing %s!", business)
	case ok:
		b.WriteString(text)
	default:
		b.WriteString(capitalize(entry.Status.String()))
	}
	if entry.Description != "" {
		fmt.Fprintf(&b, "\nDetails: %s", entry.Description)
	}
	if entry.Location != nil {
		fmt.Fprintf(&b, "\n📍 Current Location: %s", entry.Location.Label())
		if entry.Status == enums.OrderStatusDelivering && order.EstimatedDeliveryTime != nil {
			fmt.Fprintf(&b, "\n⏱ Estimated arrival: %s", order.EstimatedDeliveryTime.In(loc).Format("15:04"))
		}
	}
	return b.String()
}

func paymentConfirmedMessage(order *models.Order, business string) string {
	return fmt.Sprintf("✅ Payment Confirmed! Your payment for Order #%d has been received. Your total is %s %s. Thank you for choosing %s!",
		order.ID, catalog.FormatAmount(order.Total), order.Currency, business)
}

func paymentFailedMessage(order *models.Order, support string) string {
	return fmt.Sprintf("❌ Unfortunately, your payment for Order #%d has failed. Please reply 'retry' to try again or contact us at %s for assistance.",
		order.ID, support)
}

func adminOrderAlert(order *models.Order, txn *models.Transaction, success bool) string {
	reference := "N/A"
	if txn != nil && txn.ProviderReference != "" {
		reference = txn.ProviderReference
	} else if ref := order.CurrentTxRef(); ref != "" {
		reference = ref
	}
	result := "Failed"
	if success {
		result = "Successful"
	}

	var b strings.Builder
	b.WriteString("New Order Alert!\n")
	fmt.Fprintf(&b, "Order ID: %d\n", order.ID)
	fmt.Fprintf(&b, "Transaction ID: %s\n", reference)
	fmt.Fprintf(&b, "Customer: %s\n", order.CustomerName)
	fmt.Fprintf(&b, "Phone: %s\n", order.CustomerPhone)
	fmt.Fprintf(&b, "Address: %s\n", order.DeliveryAddress)
	fmt.Fprintf(&b, "Total: %s %s\n", catalog.FormatAmount(order.Total), order.Currency)
	fmt.Fprintf(&b, "Items:\n%s\n", itemsSummary(order.Items))
	fmt.Fprintf(&b, "Payment Status: %s", result)
	return b.String()
}

func adminStatusUpdate(order *models.Order, entry *models.OrderTracking) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔄 Order #%d Update:\n", order.ID)
	fmt.Fprintf(&b, "Status: %s\n", capitalize(entry.Status.String()))
	fmt.Fprintf(&b, "Customer: %s\n", order.CustomerName)
	if entry.Description != "" {
		fmt.Fprintf(&b, "Details: %s\n", entry.Description)
	}
	if entry.Location != nil {
		fmt.Fprintf(&b, "Location: %s\n", entry.Location.Label())
	}
	return strings.TrimRight(b.String(), "\n")
}

func adminDelayAlert(order *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ DELAY ALERT - Order #%d\n", order.ID)
	b.WriteString("Order has exceeded estimated delivery time.\n")
	fmt.Fprintf(&b, "Current Status: %s\n", capitalize(order.Status.String()))
	fmt.Fprintf(&b, "Customer: %s\n", order.CustomerName)
	fmt.Fprintf(&b, "Phone: %s", order.CustomerPhone)
	return b.String()
}

func itemsSummary(items []models.OrderItem) string {
	if len(items) == 0 {
		return "-"
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("%s x%d", item.ProductName, item.Quantity))
	}
	return strings.Join(lines, "\n")
}

func capitalize(value string) string {
	if value == "" {
		return value
	}
	return strings.ToUpper(value[:1]) + value[1:]
}
