package invoice

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sampleView() View {
	return View{
		ID:              "in_1",
		Number:          "INV-0042",
		AmountPaid:      4900,
		PaidAt:          time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC),
		CustomerEmail:   "darcy@example.com",
		PlanDescription: "CivDocs Silver Plan",
	}
}

func TestViewHelpers(t *testing.T) {
	v := sampleView()
	require.Equal(t, "INV-0042", v.DisplayNumber())
	require.Equal(t, "49.00", v.AmountMajor())
	require.Equal(t, "05/01/2026", v.FormattedDate())
	require.Equal(t, "CivDocs Silver Plan", v.Description())
}

func TestViewFallbacks(t *testing.T) {
	v := View{ID: "in_9", AmountPaid: 5}
	require.Equal(t, "in_9", v.DisplayNumber())
	require.Equal(t, "0.05", v.AmountMajor())
	require.Equal(t, "CivDocs Subscription", v.Description())
}

func TestRenderEmailHTML(t *testing.T) {
	html, err := RenderEmailHTML(sampleView())
	require.NoError(t, err)
	require.Contains(t, html, "05/01/2026")
	require.Contains(t, html, "$49.00 AUD")
	require.Contains(t, html, "INV-0042")
	require.Contains(t, html, "CivDocs Silver Plan")
}

func TestRenderPDF(t *testing.T) {
	pdf, err := RenderPDF(sampleView())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
	require.Greater(t, len(pdf), 500)
}
