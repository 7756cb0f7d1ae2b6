package billing

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// CheckoutHandler serves POST /checkout: it finds or creates the Stripe
// customer for the email, opens a card setup intent, and starts an
// incomplete subscription tagged with the organization and plan tier.
type CheckoutHandler struct {
	Stripe *client.API
}

func NewCheckoutHandler(api *client.API) *CheckoutHandler {
	return &CheckoutHandler{Stripe: api}
}

type checkoutRequest struct {
	PriceID string `json:"priceId"`
	Email   string `json:"email"`
	OrgID   string `json:"orgId"`
}

func (h *CheckoutHandler) Create(c *fiber.Ctx) error {
	var body checkoutRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.PriceID == "" || body.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing required fields: priceId and email",
		})
	}

	ctx := c.UserContext()

	// Reuse the existing Stripe customer for this email if there is one.
	listParams := &stripe.CustomerListParams{Email: stripe.String(body.Email)}
	listParams.Context = ctx
	listParams.Limit = stripe.Int64(1)

	var cust *stripe.Customer
	iter := h.Stripe.Customers.List(listParams)
	if iter.Next() {
		cust = iter.Customer()
	}
	if err := iter.Err(); err != nil {
		return checkoutError(c, err)
	}
	if cust == nil {
		created, err := h.Stripe.Customers.New(&stripe.CustomerParams{
			Params: stripe.Params{Context: ctx},
			Email:  stripe.String(body.Email),
		})
		if err != nil {
			return checkoutError(c, err)
		}
		cust = created
	}

	setupIntent, err := h.Stripe.SetupIntents.New(&stripe.SetupIntentParams{
		Params:             stripe.Params{Context: ctx},
		Customer:           stripe.String(cust.ID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Usage:              stripe.String("off_session"),
	})
	if err != nil {
		return checkoutError(c, err)
	}

	subParams := &stripe.SubscriptionParams{
		Params:   stripe.Params{Context: ctx},
		Customer: stripe.String(cust.ID),
		Items: []*stripe.SubscriptionItemsParams{{
			Price:    stripe.String(body.PriceID),
			Quantity: stripe.Int64(1),
		}},
		PaymentBehavior: stripe.String("default_incomplete"),
		PaymentSettings: &stripe.SubscriptionPaymentSettingsParams{
			SaveDefaultPaymentMethod: stripe.String("on_subscription"),
		},
	}
	subParams.AddExpand("latest_invoice.payment_intent")
	subParams.AddMetadata("orgId", body.OrgID)
	subParams.AddMetadata("planTier", PlanTierFromPriceID(body.PriceID))

	subscription, err := h.Stripe.Subscriptions.New(subParams)
	if err != nil {
		return checkoutError(c, err)
	}

	return c.JSON(fiber.Map{
		"client_secret":   setupIntent.ClientSecret,
		"subscription_id": subscription.ID,
	})
}

func checkoutError(c *fiber.Ctx, err error) error {
	log.Error().Err(err).Msg("stripe checkout failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Failed to create checkout session",
	})
}
