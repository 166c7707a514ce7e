package types

// ProviderSubscriptionSnapshot is the provider-neutral view of a subscription
// used by the sync service. Built by the provider integration layer either
// from an embedded webhook payload or from a follow-up API fetch.
type ProviderSubscriptionSnapshot struct {
	ID               string `json:"id"`
	CustomerID       string `json:"customer_id"`
	PriceID          string `json:"price_id"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
}
