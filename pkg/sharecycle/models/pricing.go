package models

// PricingPlanType distinguishes the two billing schemes.
type PricingPlanType string

const (
	PlanPayAsYouGo        PricingPlanType = "PAY_AS_YOU_GO"
	PlanMonthlySubscriber PricingPlanType = "MONTHLY_SUBSCRIBER"
)

// PricingPlanSample is a worked example attached to a plan for display.
type PricingPlanSample struct {
	DurationMinutes  int     `json:"durationMinutes"`
	StandardBikeCost float64 `json:"standardBikeCost"`
	EBikeCost        float64 `json:"eBikeCost"`
}

// PricingPlan is a display-only projection of a server-side plan. The
// pricing engine itself is out of scope for this client.
type PricingPlan struct {
	PlanID                  string            `json:"planId"`
	Name                    string            `json:"name"`
	Description             string            `json:"description,omitempty"`
	PlanType                PricingPlanType   `json:"planType"`
	BaseCost                float64           `json:"baseCost"`
	PerMinuteRate           float64           `json:"perMinuteRate"`
	EBikeSurchargePerMinute float64           `json:"eBikeSurchargePerMinute,omitempty"`
	SubscriptionFee         float64           `json:"subscriptionFee,omitempty"`
	Sample                  PricingPlanSample `json:"sample"`
}
