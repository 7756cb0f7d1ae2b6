package billing

// Stripe price id -> plan tier. Unknown price ids fall back to bronze;
// the tier only labels subscription metadata, Stripe stays authoritative.
var planTiers = map[string]string{
	"price_1SInQcEYzJYgVIMo6QFVXlsm": "bronze", // test
	"price_1SHeylEYzJYgVIMo4VLSJprk": "bronze", // prod
	"price_1SInR7EYzJYgVIMoKHwDNfvf": "silver", // test
	"price_1SHf6nEYzJYgVIMo7tAJ3zbV": "silver", // prod
	"price_1SInRKEYzJYgVIMoLjCRR76o": "gold",   // test
	"price_1SHf82EYzJYgVIMo1Vfitt1b": "gold",   // prod
}

// PlanTierFromPriceID maps a Stripe price id to its plan tier.
func PlanTierFromPriceID(priceID string) string {
	if tier, ok := planTiers[priceID]; ok {
		return tier
	}
	return "bronze"
}
