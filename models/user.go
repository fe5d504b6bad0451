package models

// UserProfile is the customer document. DiscountEligible is single use and is
// cleared by the checkout that consumes it.
type UserProfile struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	DiscountEligible bool   `json:"discountEligible"`
	TelegramChatID   int64  `json:"telegramChatId,omitempty"`
}
