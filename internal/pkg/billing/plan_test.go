package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cellsync/cellsync/app/models"
)

func TestNormalizePeriod(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "monthly", want: models.BillingPeriodMonthly},
		{in: "YEARLY", want: models.BillingPeriodYearly},
		{in: "anual", want: models.BillingPeriodYearly},
		{in: "", want: models.BillingPeriodMonthly},
	}

	for _, tt := range tests {
		if got := normalizePeriod(tt.in); got != tt.want {
			t.Fatalf("normalizePeriod(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	assert.Equal(t, "year", stripeInterval("yearly"))
	assert.Equal(t, "month", stripeInterval("weekly"))
}

func TestTenantStatusForSubscription(t *testing.T) {
	for _, status := range []string{"canceled", "unpaid"} {
		assert.Equal(t, models.TenantStatusSuspended, tenantStatusForSubscription(status), status)
	}
	for _, status := range []string{"active", "trialing", "past_due"} {
		assert.Equal(t, models.TenantStatusActive, tenantStatusForSubscription(status), status)
	}
}

func TestParseID(t *testing.T) {
	assert.Equal(t, uint(42), parseID(" 42 "))
	assert.Equal(t, uint(0), parseID("abc"))
	assert.Equal(t, uint(0), parseID(""))
}
