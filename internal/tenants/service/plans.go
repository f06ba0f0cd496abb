package service

// Plan identifiers. The plan column in the tenants table is constrained to
// these values.
const (
	PlanTrial      = "trial"
	PlanStarter    = "starter"
	PlanTeam       = "team"
	PlanEnterprise = "enterprise"
)

// Subscription statuses.
const (
	StatusTrial    = "trial"
	StatusActive   = "active"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
)

// planLimits maps each plan to its monthly scoring allowance.
var planLimits = map[string]int{
	PlanTrial:      50,
	PlanStarter:    1000,
	PlanTeam:       5000,
	PlanEnterprise: 25000,
}

// PlanInfo describes a plan for the public plan listing.
type PlanInfo struct {
	Name         string `json:"name"`
	MonthlyLimit int    `json:"monthlyLimit"`
	PriceUSD     int    `json:"priceUsd"`
	Purchasable  bool   `json:"purchasable"`
}

// plan listing order and monthly prices in whole dollars
var planCatalog = []PlanInfo{
	{Name: PlanTrial, MonthlyLimit: planLimits[PlanTrial], PriceUSD: 0, Purchasable: false},
	{Name: PlanStarter, MonthlyLimit: planLimits[PlanStarter], PriceUSD: 29, Purchasable: true},
	{Name: PlanTeam, MonthlyLimit: planLimits[PlanTeam], PriceUSD: 99, Purchasable: true},
	{Name: PlanEnterprise, MonthlyLimit: planLimits[PlanEnterprise], PriceUSD: 299, Purchasable: true},
}

// PlanLimit returns the monthly scoring allowance for a plan. Unknown plans
// fall back to the trial allowance rather than granting unlimited usage.
func PlanLimit(plan string) int {
	if limit, ok := planLimits[plan]; ok {
		return limit
	}
	return planLimits[PlanTrial]
}

// IsKnownPlan reports whether the plan name is one this system sells.
func IsKnownPlan(plan string) bool {
	_, ok := planLimits[plan]
	return ok
}

// Plans returns the plan catalog for the public listing endpoint.
func Plans() []PlanInfo {
	out := make([]PlanInfo, len(planCatalog))
	copy(out, planCatalog)
	return out
}
