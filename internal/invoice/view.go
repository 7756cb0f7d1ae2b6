package invoice

import (
	"fmt"
	"time"
)

// View is the read-only slice of a payment-processor invoice needed to
// render the tax-invoice email and PDF. Amounts are in minor units.
type View struct {
	ID              string
	Number          string
	AmountPaid      int64
	PaidAt          time.Time
	CustomerEmail   string
	PlanDescription string
}

// DisplayNumber prefers the human invoice number and falls back to the id.
func (v View) DisplayNumber() string {
	if v.Number != "" {
		return v.Number
	}
	return v.ID
}

// AmountMajor formats the paid amount in major currency units, e.g. 4900 -> "49.00".
func (v View) AmountMajor() string {
	sign := ""
	n := v.AmountPaid
	if n < 0 {
		sign = "-"
		n = -n
	}
	return fmt.Sprintf("%s%d.%02d", sign, n/100, n%100)
}

// FormattedDate renders the payment date as dd/mm/yyyy.
func (v View) FormattedDate() string {
	return v.PaidAt.Format("02/01/2006")
}

// Description returns the plan description with a default for invoices
// whose first line item carries none.
func (v View) Description() string {
	if v.PlanDescription != "" {
		return v.PlanDescription
	}
	return "CivDocs Subscription"
}
