package billing

import (
	"context"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// APIBackend adapts the Stripe client to the narrow StripeBackend
// interface so webhook handlers can be tested with fakes.
type APIBackend struct {
	API *client.API
}

func NewAPIBackend(api *client.API) *APIBackend {
	return &APIBackend{API: api}
}

func (b *APIBackend) GetInvoice(ctx context.Context, id string) (*stripe.Invoice, error) {
	return b.API.Invoices.Get(id, &stripe.InvoiceParams{
		Params: stripe.Params{Context: ctx},
	})
}

func (b *APIBackend) GetCustomer(ctx context.Context, id string) (*stripe.Customer, error) {
	return b.API.Customers.Get(id, &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
	})
}
