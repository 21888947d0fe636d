package models

// UnlimitedDailyLimit marks a plan without a daily cap
const UnlimitedDailyLimit = -1

// PricingPlan is read-only reference data from the pricing endpoint
type PricingPlan struct {
	ID           string   `json:"id"`
	DisplayName  string   `json:"name"`
	MonthlyPrice float64  `json:"price"`
	DailyLimit   int      `json:"daily_limit"`
	Features     []string `json:"features"`
}

// PricingResponse wraps the plan catalog keyed by plan id
type PricingResponse struct {
	Plans map[string]PricingPlan `json:"plans"`
}

// Unlimited reports whether the plan has no daily cap
func (p PricingPlan) Unlimited() bool {
	return p.DailyLimit == UnlimitedDailyLimit
}

// Remaining returns how many try-ons are left today. The second value is
// true for unlimited plans, in which case the count is meaningless.
func (p PricingPlan) Remaining(used int) (int, bool) {
	if p.Unlimited() {
		return 0, true
	}
	left := p.DailyLimit - used
	if left < 0 {
		left = 0
	}
	return left, false
}

// Allows reports whether another try-on fits within the daily limit
func (p PricingPlan) Allows(used int) bool {
	left, unlimited := p.Remaining(used)
	return unlimited || left > 0
}
