package services

import (
	"fmt"
	"strings"

	"salgados/models"
)

// OrderCardButton is one inline button (text + callback_data or url).
type OrderCardButton struct {
	Text         string
	CallbackData string
	URL          string // if set, use as URL button instead of callback
}

// OrderCardContent is the text and optional inline keyboard for an order card.
type OrderCardContent struct {
	Text    string
	Buttons [][]OrderCardButton
}

const orderStatusCallbackPrefix = "os:"

// Telegram caps callback data at 64 bytes, so statuses travel as one letter.
var statusCodes = map[models.OrderStatus]string{
	models.StatusPending:        "p",
	models.StatusPreparing:      "e",
	models.StatusReady:          "r",
	models.StatusOutForDelivery: "s",
	models.StatusCompleted:      "c",
	models.StatusRejected:       "x",
}

// OrderStatusCallback encodes an admin button press.
func OrderStatusCallback(orderID string, to models.OrderStatus) string {
	return orderStatusCallbackPrefix + orderID + ":" + statusCodes[to]
}

// ParseOrderStatusCallback decodes OrderStatusCallback data.
func ParseOrderStatusCallback(data string) (orderID string, to models.OrderStatus, ok bool) {
	rest, found := strings.CutPrefix(data, orderStatusCallbackPrefix)
	if !found {
		return "", "", false
	}
	id, code, found := strings.Cut(rest, ":")
	if !found || id == "" {
		return "", "", false
	}
	for status, c := range statusCodes {
		if c == code {
			return id, status, true
		}
	}
	return "", "", false
}

func adminActionLabel(to models.OrderStatus) string {
	switch to {
	case models.StatusPreparing:
		return "👨‍🍳 Iniciar preparo"
	case models.StatusReady:
		return "✅ Marcar como pronto"
	case models.StatusOutForDelivery:
		return "🛵 Saiu para entrega"
	case models.StatusCompleted:
		return "🏁 Concluir"
	case models.StatusRejected:
		return "❌ Rejeitar"
	}
	return string(to)
}

func fulfillmentLine(o *models.Order) string {
	switch f := o.Fulfillment.(type) {
	case models.Delivery:
		return "🛵 Entrega: " + formatAddress(&f.Address)
	case models.Pickup:
		return "🏪 Levantamento às " + f.Time
	case models.Scheduled:
		where := "levantamento"
		if f.Address != nil {
			where = "entrega em " + formatAddress(f.Address)
		}
		return fmt.Sprintf("📅 Agendado %s %s, %s", f.Date, f.Time, where)
	}
	return ""
}

func formatAddress(a *models.Address) string {
	parts := []string{strings.TrimSpace(a.Street + " " + a.Number)}
	for _, p := range []string{a.District, a.PostalCode, a.City} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// BuildAdminCard returns full card text and the inline keyboard with the next
// statuses the order can move to.
func BuildAdminCard(o *models.Order) OrderCardContent {
	var b strings.Builder
	fmt.Fprintf(&b, "Pedido #%s\n\n", ShortOrderRef(o.ID))
	for _, l := range o.Items {
		fmt.Fprintf(&b, "• %d × %s\n", l.Quantity, l.Name)
		for _, c := range l.Customization {
			fmt.Fprintf(&b, "    %d × %s\n", c.Quantity, c.ComponentName)
		}
	}
	b.WriteString("\n" + fulfillmentLine(o) + "\n")
	fmt.Fprintf(&b, "Subtotal: %s €\n", o.Pricing.Subtotal.StringFixed(2))
	if o.Discount != nil {
		fmt.Fprintf(&b, "Desconto: -%s €\n", o.Discount.Amount.StringFixed(2))
	}
	if o.IsDelivery() {
		fmt.Fprintf(&b, "Entrega (%.1f km): %s €\n", o.Pricing.DistanceKm, o.Pricing.DeliveryFee.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: %s €\n", o.Pricing.GrandTotal.StringFixed(2))
	fmt.Fprintf(&b, "Estado: %s", o.Status)

	var buttons [][]OrderCardButton
	for _, next := range NextStatuses(o) {
		buttons = append(buttons, []OrderCardButton{{Text: adminActionLabel(next), CallbackData: OrderStatusCallback(o.ID, next)}})
	}
	return OrderCardContent{Text: b.String(), Buttons: buttons}
}

// BuildCustomerCard returns the card shown to the customer, with a tracking
// link while the order is out for delivery.
func BuildCustomerCard(o *models.Order, trackURL string) OrderCardContent {
	text := CustomerMessageForOrderStatus(o, o.Status)
	text += fmt.Sprintf("\n\nTotal: %s €\nEstado: %s", o.Pricing.GrandTotal.StringFixed(2), o.Status)

	var buttons [][]OrderCardButton
	if o.Status == models.StatusOutForDelivery && trackURL != "" {
		buttons = [][]OrderCardButton{{{Text: "📍 Seguir entrega", URL: trackURL}}}
	}
	return OrderCardContent{Text: text, Buttons: buttons}
}
