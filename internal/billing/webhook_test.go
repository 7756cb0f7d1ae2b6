package billing

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"github.com/Darcywood/civdocs-landing/internal/mailer"
)

const testSecret = "whsec_test_secret"

// signBody builds a Stripe-Signature header over the payload the same
// way Stripe does: HMAC-SHA256 over "<timestamp>.<payload>".
func signBody(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

type subState struct {
	subscriptionID string
	status         string
	periodEnd      *time.Time
}

type fakeBillingStore struct {
	updateErr error

	checkoutOrg      string
	checkoutCustomer string
	checkoutSub      string
	checkoutTier     string

	byCustomer map[string]subState
	bySub      map[string]subState
	canceled   []string
	calls      int
}

func newFakeBillingStore() *fakeBillingStore {
	return &fakeBillingStore{
		byCustomer: map[string]subState{},
		bySub:      map[string]subState{},
	}
}

func (f *fakeBillingStore) UpdateCheckoutCompleted(ctx context.Context, orgID, customerID, subscriptionID, planTier string) error {
	f.calls++
	if f.updateErr != nil {
		return f.updateErr
	}
	f.checkoutOrg = orgID
	f.checkoutCustomer = customerID
	f.checkoutSub = subscriptionID
	f.checkoutTier = planTier
	return nil
}

func (f *fakeBillingStore) UpdateSubscriptionByCustomer(ctx context.Context, customerID, subscriptionID, status string, periodEnd *time.Time) error {
	f.calls++
	if f.updateErr != nil {
		return f.updateErr
	}
	f.byCustomer[customerID] = subState{subscriptionID: subscriptionID, status: status, periodEnd: periodEnd}
	return nil
}

func (f *fakeBillingStore) UpdateSubscriptionBySubID(ctx context.Context, subscriptionID, status string, periodEnd *time.Time) error {
	f.calls++
	if f.updateErr != nil {
		return f.updateErr
	}
	f.bySub[subscriptionID] = subState{subscriptionID: subscriptionID, status: status, periodEnd: periodEnd}
	return nil
}

func (f *fakeBillingStore) CancelSubscriptionBySubID(ctx context.Context, subscriptionID string) error {
	f.calls++
	if f.updateErr != nil {
		return f.updateErr
	}
	f.canceled = append(f.canceled, subscriptionID)
	return nil
}

type fakeStripeBackend struct {
	invoice  *stripe.Invoice
	customer *stripe.Customer
}

func (f *fakeStripeBackend) GetInvoice(ctx context.Context, id string) (*stripe.Invoice, error) {
	if f.invoice == nil {
		return nil, errors.New("no such invoice")
	}
	return f.invoice, nil
}

func (f *fakeStripeBackend) GetCustomer(ctx context.Context, id string) (*stripe.Customer, error) {
	if f.customer == nil {
		return nil, errors.New("no such customer")
	}
	return f.customer, nil
}

type fakeWebhookMailer struct {
	sendErr error
	sent    []mailer.Message
}

func (f *fakeWebhookMailer) Send(ctx context.Context, msg mailer.Message) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newWebhookApp(st *fakeBillingStore, backend *fakeStripeBackend, m *fakeWebhookMailer) *fiber.App {
	app := fiber.New()
	h := NewWebhookHandler(testSecret, st, backend, m)
	app.Post("/webhooks/billing", h.Handle)
	return app
}

func deliver(t *testing.T, app *fiber.App, body []byte, signature string) int {
	t.Helper()
	req := httptest.NewRequest("POST", "/webhooks/billing", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	res, err := app.Test(req)
	require.NoError(t, err)
	defer res.Body.Close()
	return res.StatusCode
}

func eventJSON(eventType, object string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_1","type":%q,"data":{"object":%s}}`, eventType, object))
}

func TestWebhookRejectsTamperedBody(t *testing.T) {
	st := newFakeBillingStore()
	app := newWebhookApp(st, &fakeStripeBackend{}, &fakeWebhookMailer{})

	body := eventJSON("customer.subscription.updated", `{"id":"sub_1","status":"active"}`)
	sig := signBody(body, testSecret)

	tampered := bytes.Replace(body, []byte("active"), []byte("trialing"), 1)
	status := deliver(t, app, tampered, sig)

	require.Equal(t, fiber.StatusBadRequest, status)
	require.Zero(t, st.calls)
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	st := newFakeBillingStore()
	app := newWebhookApp(st, &fakeStripeBackend{}, &fakeWebhookMailer{})

	body := eventJSON("customer.subscription.updated", `{"id":"sub_1","status":"active"}`)
	status := deliver(t, app, body, "")

	require.Equal(t, fiber.StatusBadRequest, status)
	require.Zero(t, st.calls)
}

func TestWebhookIgnoresUnknownEventType(t *testing.T) {
	st := newFakeBillingStore()
	app := newWebhookApp(st, &fakeStripeBackend{}, &fakeWebhookMailer{})

	body := eventJSON("payment_intent.created", `{"id":"pi_1"}`)
	status := deliver(t, app, body, signBody(body, testSecret))

	require.Equal(t, fiber.StatusOK, status)
	require.Zero(t, st.calls)
}

func TestWebhookCheckoutCompleted(t *testing.T) {
	st := newFakeBillingStore()
	app := newWebhookApp(st, &fakeStripeBackend{}, &fakeWebhookMailer{})

	body := eventJSON("checkout.session.completed",
		`{"id":"cs_1","customer":"cus_1","subscription":"sub_1","metadata":{"orgId":"org-1","planTier":"gold"}}`)
	status := deliver(t, app, body, signBody(body, testSecret))

	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "org-1", st.checkoutOrg)
	require.Equal(t, "cus_1", st.checkoutCustomer)
	require.Equal(t, "sub_1", st.checkoutSub)
	require.Equal(t, "gold", st.checkoutTier)
}

func TestWebhookCheckoutWithoutOrgReferenceSkips(t *testing.T) {
	st := newFakeBillingStore()
	app := newWebhookApp(st, &fakeStripeBackend{}, &fakeWebhookMailer{})

	body := eventJSON("checkout.session.completed", `{"id":"cs_1","customer":"cus_1","subscription":"sub_1"}`)
	status := deliver(t, app, body, signBody(body, testSecret))

	require.Equal(t, fiber.StatusOK, status)
	require.Zero(t, st.calls)
}

func TestWebhookSubscriptionCreated(t *testing.T) {
	st := newFakeBillingStore()
	app := newWebhookApp(st, &fakeStripeBackend{}, &fakeWebhookMailer{})

	body := eventJSON("customer.subscription.created",
		`{"id":"sub_1","customer":"cus_1","status":"incomplete","current_period_end":1767225600}`)
	status := deliver(t, app, body, signBody(body, testSecret))

	require.Equal(t, fiber.StatusOK, status)
	got := st.byCustomer["cus_1"]
	require.Equal(t, "sub_1", got.subscriptionID)
	require.Equal(t, "incomplete", got.status)
	require.NotNil(t, got.periodEnd)
	require.Equal(t, int64(1767225600), got.periodEnd.Unix())
}

func TestWebhookSubscriptionUpdatedIdempotent(t *testing.T) {
	st := newFakeBillingStore()
	app := newWebhookApp(st, &fakeStripeBackend{}, &fakeWebhookMailer{})

	body := eventJSON("customer.subscription.updated",
		`{"id":"sub_1","customer":"cus_1","status":"past_due","current_period_end":1767225600}`)

	require.Equal(t, fiber.StatusOK, deliver(t, app, body, signBody(body, testSecret)))
	first := st.bySub["sub_1"]

	require.Equal(t, fiber.StatusOK, deliver(t, app, body, signBody(body, testSecret)))
	second := st.bySub["sub_1"]

	require.Equal(t, first.subscriptionID, second.subscriptionID)
	require.Equal(t, first.status, second.status)
	require.Equal(t, first.periodEnd.Unix(), second.periodEnd.Unix())
}

func TestWebhookSubscriptionUpdatedReadsItemPeriodEnd(t *testing.T) {
	st := newFakeBillingStore()
	app := newWebhookApp(st, &fakeStripeBackend{}, &fakeWebhookMailer{})

	// Newer API versions report the period end on the items.
	body := eventJSON("customer.subscription.updated",
		`{"id":"sub_1","status":"active","items":{"data":[{"current_period_end":1767225600}]}}`)
	deliver(t, app, body, signBody(body, testSecret))

	got := st.bySub["sub_1"]
	require.NotNil(t, got.periodEnd)
	require.Equal(t, int64(1767225600), got.periodEnd.Unix())
}

func TestWebhookSubscriptionDeleted(t *testing.T) {
	st := newFakeBillingStore()
	app := newWebhookApp(st, &fakeStripeBackend{}, &fakeWebhookMailer{})

	body := eventJSON("customer.subscription.deleted", `{"id":"sub_1","customer":"cus_1","status":"canceled"}`)
	status := deliver(t, app, body, signBody(body, testSecret))

	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, []string{"sub_1"}, st.canceled)
}

func TestWebhookStoreFailureStillAcks(t *testing.T) {
	st := newFakeBillingStore()
	st.updateErr = errors.New("db down")
	app := newWebhookApp(st, &fakeStripeBackend{}, &fakeWebhookMailer{})

	body := eventJSON("customer.subscription.updated", `{"id":"sub_1","status":"active"}`)
	status := deliver(t, app, body, signBody(body, testSecret))

	// Stripe must not redeliver; the failure is logged instead.
	require.Equal(t, fiber.StatusOK, status)
}

const paidInvoiceObject = `{
	"id": "in_1",
	"number": "INV-0042",
	"amount_paid": 4900,
	"customer_email": "darcy@example.com",
	"customer": "cus_1",
	"status_transitions": {"paid_at": 1767225600},
	"lines": {"data": [{"description": "CivDocs Silver Plan"}]}
}`

func TestWebhookInvoicePaymentSucceededSendsInvoice(t *testing.T) {
	st := newFakeBillingStore()
	m := &fakeWebhookMailer{}
	app := newWebhookApp(st, &fakeStripeBackend{}, m)

	body := eventJSON("invoice.payment_succeeded", paidInvoiceObject)
	status := deliver(t, app, body, signBody(body, testSecret))

	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, m.sent, 1)

	msg := m.sent[0]
	require.Equal(t, "darcy@example.com", msg.To)
	require.Equal(t, "Tax Invoice – CivDocs Subscription", msg.Subject)
	require.Contains(t, msg.HTML, "49.00")
	require.Contains(t, msg.HTML, "INV-0042")
	require.Contains(t, msg.HTML, "CivDocs Silver Plan")

	require.Len(t, msg.Attachments, 1)
	require.Equal(t, "invoice-INV-0042.pdf", msg.Attachments[0].Filename)
	require.True(t, bytes.HasPrefix(msg.Attachments[0].Content, []byte("%PDF")))
}

func TestWebhookInvoicePaymentFallsBackToCustomerEmail(t *testing.T) {
	st := newFakeBillingStore()
	m := &fakeWebhookMailer{}
	backend := &fakeStripeBackend{customer: &stripe.Customer{Email: "billing@example.com"}}
	app := newWebhookApp(st, backend, m)

	object := strings.Replace(paidInvoiceObject, `"customer_email": "darcy@example.com",`, "", 1)
	body := eventJSON("invoice.payment_succeeded", object)
	deliver(t, app, body, signBody(body, testSecret))

	require.Len(t, m.sent, 1)
	require.Equal(t, "billing@example.com", m.sent[0].To)
}

func TestWebhookInvoicePaymentNoEmailSkips(t *testing.T) {
	st := newFakeBillingStore()
	m := &fakeWebhookMailer{}
	backend := &fakeStripeBackend{customer: &stripe.Customer{}}
	app := newWebhookApp(st, backend, m)

	object := strings.Replace(paidInvoiceObject, `"customer_email": "darcy@example.com",`, "", 1)
	body := eventJSON("invoice.payment_succeeded", object)
	status := deliver(t, app, body, signBody(body, testSecret))

	require.Equal(t, fiber.StatusOK, status)
	require.Empty(t, m.sent)
}

func TestWebhookInvoicePaymentPaidResolvesFullInvoice(t *testing.T) {
	st := newFakeBillingStore()
	m := &fakeWebhookMailer{}
	backend := &fakeStripeBackend{
		invoice: &stripe.Invoice{
			ID:            "in_2",
			AmountPaid:    9900,
			CustomerEmail: "darcy@example.com",
			StatusTransitions: &stripe.InvoiceStatusTransitions{
				PaidAt: 1767225600,
			},
		},
	}
	app := newWebhookApp(st, backend, m)

	body := eventJSON("invoice_payment.paid", `{"id":"inpay_1","invoice":"in_2"}`)
	status := deliver(t, app, body, signBody(body, testSecret))

	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, m.sent, 1)
	require.Equal(t, "invoice-in_2.pdf", m.sent[0].Attachments[0].Filename)
	require.Contains(t, m.sent[0].HTML, "99.00")
	// No line items on this invoice, so the default description applies.
	require.Contains(t, m.sent[0].HTML, "CivDocs Subscription")
}

func TestWebhookMailerFailureStillAcks(t *testing.T) {
	st := newFakeBillingStore()
	m := &fakeWebhookMailer{sendErr: errors.New("provider down")}
	app := newWebhookApp(st, &fakeStripeBackend{}, m)

	body := eventJSON("invoice.payment_succeeded", paidInvoiceObject)
	status := deliver(t, app, body, signBody(body, testSecret))

	require.Equal(t, fiber.StatusOK, status)
	require.Empty(t, m.sent)
}

func TestWebhookInvoicePaymentFailedIsNoOp(t *testing.T) {
	st := newFakeBillingStore()
	m := &fakeWebhookMailer{}
	app := newWebhookApp(st, &fakeStripeBackend{}, m)

	body := eventJSON("invoice.payment_failed", `{"id":"in_3"}`)
	status := deliver(t, app, body, signBody(body, testSecret))

	require.Equal(t, fiber.StatusOK, status)
	require.Zero(t, st.calls)
	require.Empty(t, m.sent)
}
