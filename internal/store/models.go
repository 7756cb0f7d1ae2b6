package store

import "time"

// Organization is the tenant record created during trial signup and
// kept in sync with Stripe by the billing webhook handlers.
type Organization struct {
	ID                   string
	Name                 string
	Email                string
	PlanType             string
	TrialExpiresAt       time.Time
	CreatedBy            string
	StripeCustomerID     *string
	StripeSubscriptionID *string
	PlanTier             *string
	SubscriptionStatus   *string
	CurrentPeriodEnd     *time.Time
}

// Profile mirrors the auth user one-to-one. Its id is the auth user id.
type Profile struct {
	ID                   string
	Email                string
	FullName             string
	ActiveOrganizationID string
	Role                 string
}
