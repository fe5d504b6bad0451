package services

import (
	"fmt"
	"time"

	"salgados/models"

	"github.com/shopspring/decimal"
)

// DailyStats summarises the orders created on date (YYYY-MM-DD) in the shop
// timezone. Rejected orders are not counted.
func DailyStats(orders []models.Order, date, timezone string) (*models.DailyStats, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("stats: timezone %q: %w", timezone, err)
	}
	if _, err := time.ParseInLocation(dateLayout, date, loc); err != nil {
		return nil, fmt.Errorf("stats: %w: %q", ErrInvalidDate, date)
	}

	s := &models.DailyStats{
		Date:            date,
		ItemsRevenue:    decimal.Zero,
		DiscountTotal:   decimal.Zero,
		DeliveryRevenue: decimal.Zero,
		GrandRevenue:    decimal.Zero,
	}
	for _, o := range orders {
		if o.Status == models.StatusRejected {
			continue
		}
		if o.CreatedAt.In(loc).Format(dateLayout) != date {
			continue
		}
		s.OrdersCount++
		s.ItemsRevenue = s.ItemsRevenue.Add(o.Pricing.Subtotal)
		s.DiscountTotal = s.DiscountTotal.Add(o.Pricing.DiscountAmount)
		s.DeliveryRevenue = s.DeliveryRevenue.Add(o.Pricing.DeliveryFee)
		s.GrandRevenue = s.GrandRevenue.Add(o.Pricing.GrandTotal)
		if o.Fulfillment != nil && o.Fulfillment.Method() == models.MethodSchedule {
			s.ScheduledCount++
		}
	}
	return s, nil
}
