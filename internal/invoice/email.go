package invoice

import (
	"bytes"
	"html/template"
)

var emailTmpl = template.Must(template.New("invoice").Parse(`
<div style="font-family: Arial, sans-serif; padding: 20px; color: #111;">
  <h2 style="color: #F97316;">CivDocs Tax Invoice</h2>
  <p>Hi there,</p>
  <p>Thanks for your payment to CivDocs. Here are your invoice details:</p>
  <table style="margin-top: 10px;">
    <tr><td><strong>Date:</strong></td><td>{{.FormattedDate}}</td></tr>
    <tr><td><strong>Amount Paid:</strong></td><td>${{.AmountMajor}} AUD</td></tr>
    <tr><td><strong>Invoice Number:</strong></td><td>{{.DisplayNumber}}</td></tr>
    <tr><td><strong>Plan:</strong></td><td>{{.Description}}</td></tr>
  </table>
  <p style="margin-top: 20px;">Your official tax invoice is attached as a PDF.</p>
  <p>&mdash; The CivDocs Team</p>
  <hr style="margin-top: 30px;">
  <small>CivDocs Pty Ltd | ABN 12 345 678 901 | www.civdocs.com | darcy@civdocs.com.au</small>
</div>
`))

// RenderEmailHTML builds the payment-confirmation email body.
func RenderEmailHTML(v View) (string, error) {
	var buf bytes.Buffer
	if err := emailTmpl.Execute(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}
