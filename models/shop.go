package models

import "github.com/shopspring/decimal"

// Weekday keys used by WeeklySchedule, lowercase English names as returned by
// strings.ToLower(time.Weekday.String()).
const (
	Sunday    = "sunday"
	Monday    = "monday"
	Tuesday   = "tuesday"
	Wednesday = "wednesday"
	Thursday  = "thursday"
	Friday    = "friday"
	Saturday  = "saturday"
)

// Weekdays lists every key a WeeklySchedule must carry, Sunday first.
var Weekdays = []string{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// DaySchedule is one weekday's working interval. Start and End are "HH:MM".
// Start > End means the interval wraps past midnight into the next day.
type DaySchedule struct {
	Open  bool   `json:"open"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type WeeklySchedule map[string]DaySchedule

// ShopSettings is the singleton shop configuration document.
type ShopSettings struct {
	Name          string          `json:"name"`
	Phone         string          `json:"phone"`
	Email         string          `json:"email,omitempty"`
	Location      *GeoPoint       `json:"location"` // nil until the shop is placed on the map
	PickupAddress string          `json:"pickupAddress"`
	Schedule      WeeklySchedule  `json:"schedule"`
	Holidays      []string        `json:"holidays"` // ISO dates, "2006-01-02"
	Timezone      string          `json:"timezone"`
	PricePerKm    decimal.Decimal `json:"deliveryPricePerKm"`
	MaxRadiusKm   float64         `json:"deliveryMaxRadiusKm"`
}

// IsHoliday reports whether date (ISO) is an exact match in Holidays.
func (s *ShopSettings) IsHoliday(date string) bool {
	for _, h := range s.Holidays {
		if h == date {
			return true
		}
	}
	return false
}
