package models

import "github.com/shopspring/decimal"

// CustomizationItem is one component chosen for a box line.
type CustomizationItem struct {
	ComponentName string          `json:"componentName"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
}

// CartLine is frozen at add-to-cart time: UnitPrice and RequiresScheduling do
// not follow later catalog edits.
type CartLine struct {
	ItemID             string              `json:"itemId"`
	Name               string              `json:"name"`
	UnitPrice          decimal.Decimal     `json:"unitPrice"`
	Quantity           int                 `json:"quantity"`
	RequiresScheduling bool                `json:"requiresScheduling,omitempty"`
	Customization      []CustomizationItem `json:"customization,omitempty"`
}

// SameLine reports whether two lines refer to the same item with the same
// customization, compared in order.
func (l CartLine) SameLine(o CartLine) bool {
	if l.ItemID != o.ItemID || len(l.Customization) != len(o.Customization) {
		return false
	}
	for i := range l.Customization {
		a, b := l.Customization[i], o.Customization[i]
		if a.ComponentName != b.ComponentName || a.Quantity != b.Quantity || !a.UnitPrice.Equal(b.UnitPrice) {
			return false
		}
	}
	return true
}

// Total is UnitPrice × Quantity.
func (l CartLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Cart struct {
	UserID string     `json:"userId"`
	Lines  []CartLine `json:"lines"`
}
