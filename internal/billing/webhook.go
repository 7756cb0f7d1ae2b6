package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/Darcywood/civdocs-landing/internal/invoice"
	"github.com/Darcywood/civdocs-landing/internal/mailer"
)

// eventKind is the closed set of webhook event types this service acts
// on. Everything else maps to eventIgnored.
type eventKind int

const (
	eventIgnored eventKind = iota
	eventCheckoutCompleted
	eventSubscriptionCreated
	eventSubscriptionUpdated
	eventSubscriptionDeleted
	eventInvoicePaymentSucceeded
	eventInvoicePaymentPaid
	eventInvoicePaymentFailed
)

func kindOf(t stripe.EventType) eventKind {
	switch string(t) {
	case "checkout.session.completed":
		return eventCheckoutCompleted
	case "customer.subscription.created":
		return eventSubscriptionCreated
	case "customer.subscription.updated":
		return eventSubscriptionUpdated
	case "customer.subscription.deleted":
		return eventSubscriptionDeleted
	case "invoice.payment_succeeded":
		return eventInvoicePaymentSucceeded
	case "invoice_payment.paid":
		return eventInvoicePaymentPaid
	case "invoice.payment_failed":
		return eventInvoicePaymentFailed
	default:
		return eventIgnored
	}
}

// BillingStore is the slice of the record store the webhook handlers
// mutate. Every update is an idempotent field overwrite keyed by a
// stable Stripe identifier, so redelivery is safe.
type BillingStore interface {
	UpdateCheckoutCompleted(ctx context.Context, orgID, customerID, subscriptionID, planTier string) error
	UpdateSubscriptionByCustomer(ctx context.Context, customerID, subscriptionID, status string, periodEnd *time.Time) error
	UpdateSubscriptionBySubID(ctx context.Context, subscriptionID, status string, periodEnd *time.Time) error
	CancelSubscriptionBySubID(ctx context.Context, subscriptionID string) error
}

// StripeBackend is the slice of the Stripe API the handlers read from.
type StripeBackend interface {
	GetInvoice(ctx context.Context, id string) (*stripe.Invoice, error)
	GetCustomer(ctx context.Context, id string) (*stripe.Customer, error)
}

// Mailer sends the tax-invoice email.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// WebhookHandler serves POST /webhooks/billing. Signature verification
// is the authentication mechanism for this endpoint; once it passes,
// the response is always a success acknowledgment so Stripe does not
// redeliver, even when a downstream update fails.
type WebhookHandler struct {
	Secret string
	Store  BillingStore
	Stripe StripeBackend
	Mailer Mailer
}

func NewWebhookHandler(secret string, store BillingStore, backend StripeBackend, m Mailer) *WebhookHandler {
	return &WebhookHandler{Secret: secret, Store: store, Stripe: backend, Mailer: m}
}

func (h *WebhookHandler) Handle(c *fiber.Ctx) error {
	event, err := webhook.ConstructEventWithOptions(c.Body(), c.Get("Stripe-Signature"), h.Secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		log.Warn().Err(err).Msg("billing webhook: signature verification failed")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid signature"})
	}

	if err := h.dispatch(c.UserContext(), event); err != nil {
		// Acknowledge anyway: a non-2xx here would put Stripe into a
		// redelivery loop for an event we cannot process.
		log.Error().Err(err).Str("event_id", event.ID).Str("type", string(event.Type)).
			Msg("billing webhook: handler failed")
	}

	return c.JSON(fiber.Map{"received": true})
}

type checkoutSessionPayload struct {
	ID           string            `json:"id"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

type subscriptionPayload struct {
	ID               string `json:"id"`
	Customer         string `json:"customer"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
	Items            struct {
		Data []struct {
			CurrentPeriodEnd int64 `json:"current_period_end"`
		} `json:"data"`
	} `json:"items"`
}

// periodEnd prefers the subscription-level field and falls back to the
// first item, where newer Stripe API versions report it.
func (p subscriptionPayload) periodEnd() *time.Time {
	ts := p.CurrentPeriodEnd
	if ts == 0 && len(p.Items.Data) > 0 {
		ts = p.Items.Data[0].CurrentPeriodEnd
	}
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}

type invoicePayload struct {
	ID                string `json:"id"`
	Number            string `json:"number"`
	AmountPaid        int64  `json:"amount_paid"`
	CustomerEmail     string `json:"customer_email"`
	Customer          string `json:"customer"`
	StatusTransitions struct {
		PaidAt int64 `json:"paid_at"`
	} `json:"status_transitions"`
	Lines struct {
		Data []struct {
			Description string `json:"description"`
		} `json:"data"`
	} `json:"lines"`
}

type invoicePaymentPayload struct {
	Invoice string `json:"invoice"`
}

func (h *WebhookHandler) dispatch(ctx context.Context, event stripe.Event) error {
	switch kindOf(event.Type) {
	case eventCheckoutCompleted:
		var session checkoutSessionPayload
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("decode checkout.session: %w", err)
		}
		return h.handleCheckoutCompleted(ctx, session)

	case eventSubscriptionCreated:
		var sub subscriptionPayload
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return h.Store.UpdateSubscriptionByCustomer(ctx, sub.Customer, sub.ID, sub.Status, sub.periodEnd())

	case eventSubscriptionUpdated:
		var sub subscriptionPayload
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return h.Store.UpdateSubscriptionBySubID(ctx, sub.ID, sub.Status, sub.periodEnd())

	case eventSubscriptionDeleted:
		var sub subscriptionPayload
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return h.Store.CancelSubscriptionBySubID(ctx, sub.ID)

	case eventInvoicePaymentSucceeded:
		var inv invoicePayload
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("decode invoice: %w", err)
		}
		h.handlePaymentSucceeded(ctx, inv)
		return nil

	case eventInvoicePaymentPaid:
		// This variant carries only a reference; resolve the full invoice.
		var payment invoicePaymentPayload
		if err := json.Unmarshal(event.Data.Raw, &payment); err != nil {
			return fmt.Errorf("decode invoice_payment: %w", err)
		}
		full, err := h.Stripe.GetInvoice(ctx, payment.Invoice)
		if err != nil {
			return fmt.Errorf("retrieve invoice %s: %w", payment.Invoice, err)
		}
		h.handlePaymentSucceeded(ctx, invoiceToPayload(full))
		return nil

	case eventInvoicePaymentFailed:
		var inv invoicePayload
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("decode invoice: %w", err)
		}
		// Dunning hook. Nothing automated yet.
		log.Warn().Str("invoice_id", inv.ID).Msg("billing webhook: invoice payment failed")
		return nil

	default:
		log.Info().Str("type", string(event.Type)).Str("event_id", event.ID).
			Msg("billing webhook: ignored (unhandled type)")
		return nil
	}
}

func (h *WebhookHandler) handleCheckoutCompleted(ctx context.Context, session checkoutSessionPayload) error {
	orgID := session.Metadata["orgId"]
	if orgID == "" {
		log.Warn().Str("session_id", session.ID).
			Msg("billing webhook: checkout session has no organization reference")
		return nil
	}
	return h.Store.UpdateCheckoutCompleted(ctx, orgID, session.Customer, session.Subscription, session.Metadata["planTier"])
}

// handlePaymentSucceeded emails the tax invoice with a PDF attachment.
// Every failure in here is logged and swallowed: the webhook must still
// be acknowledged, and billing state does not depend on this email.
func (h *WebhookHandler) handlePaymentSucceeded(ctx context.Context, inv invoicePayload) {
	email := inv.CustomerEmail
	if email == "" && inv.Customer != "" {
		cust, err := h.Stripe.GetCustomer(ctx, inv.Customer)
		if err != nil {
			log.Error().Err(err).Str("customer_id", inv.Customer).
				Msg("billing webhook: customer lookup failed")
		} else if cust != nil {
			email = cust.Email
		}
	}
	if email == "" {
		log.Info().Str("invoice_id", inv.ID).
			Msg("billing webhook: no customer email, skipping invoice send")
		return
	}

	view := invoice.View{
		ID:            inv.ID,
		Number:        inv.Number,
		AmountPaid:    inv.AmountPaid,
		PaidAt:        time.Unix(inv.StatusTransitions.PaidAt, 0).UTC(),
		CustomerEmail: email,
	}
	if len(inv.Lines.Data) > 0 {
		view.PlanDescription = inv.Lines.Data[0].Description
	}

	html, err := invoice.RenderEmailHTML(view)
	if err != nil {
		log.Error().Err(err).Str("invoice_id", inv.ID).Msg("billing webhook: invoice email render failed")
		return
	}
	pdf, err := invoice.RenderPDF(view)
	if err != nil {
		log.Error().Err(err).Str("invoice_id", inv.ID).Msg("billing webhook: invoice pdf render failed")
		return
	}

	err = h.Mailer.Send(ctx, mailer.Message{
		To:      email,
		Subject: "Tax Invoice – CivDocs Subscription",
		HTML:    html,
		Attachments: []mailer.Attachment{{
			Filename: "invoice-" + view.DisplayNumber() + ".pdf",
			Content:  pdf,
		}},
	})
	if err != nil {
		log.Error().Err(err).Str("invoice_id", inv.ID).Str("email", email).
			Msg("billing webhook: tax invoice email failed")
		return
	}

	log.Info().Str("invoice_id", inv.ID).Str("email", email).Msg("billing webhook: tax invoice sent")
}

func invoiceToPayload(inv *stripe.Invoice) invoicePayload {
	var p invoicePayload
	p.ID = inv.ID
	p.Number = inv.Number
	p.AmountPaid = inv.AmountPaid
	p.CustomerEmail = inv.CustomerEmail
	if inv.Customer != nil {
		p.Customer = inv.Customer.ID
	}
	if inv.StatusTransitions != nil {
		p.StatusTransitions.PaidAt = inv.StatusTransitions.PaidAt
	}
	if inv.Lines != nil {
		for _, line := range inv.Lines.Data {
			p.Lines.Data = append(p.Lines.Data, struct {
				Description string `json:"description"`
			}{Description: line.Description})
		}
	}
	return p
}
