package billing

import (
	"strconv"
	"strings"

	"github.com/cellsync/cellsync/app/models"
)

func normalizePeriod(period string) string {
	switch strings.ToLower(strings.TrimSpace(period)) {
	case models.BillingPeriodYearly, "year", "annual", "anual":
		return models.BillingPeriodYearly
	default:
		return models.BillingPeriodMonthly
	}
}

// stripeInterval maps a billing period to Stripe's recurring interval.
func stripeInterval(period string) string {
	if normalizePeriod(period) == models.BillingPeriodYearly {
		return "year"
	}
	return "month"
}

// tenantStatusForSubscription maps a Stripe subscription status to the
// tenant status. Anything not canceled or unpaid keeps the tenant active.
func tenantStatusForSubscription(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "canceled", "unpaid":
		return models.TenantStatusSuspended
	default:
		return models.TenantStatusActive
	}
}

func parseID(s string) uint {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return uint(n)
}
