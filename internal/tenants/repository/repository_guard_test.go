package repository

import (
	"strings"
	"testing"
)

func TestConsumeQuotaQueryIsConditional(t *testing.T) {
	query := strings.ToLower(consumeQuotaQuery)

	requiredFragments := []string{
		"update tenants",
		"where id = $1",
		"< $2",
		"returning monthly_usage",
	}

	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected quota query fragment %q to be present", fragment)
		}
	}
}

func TestConsumeQuotaQueryRollsOverStaleMonth(t *testing.T) {
	query := strings.ToLower(consumeQuotaQuery)

	// A stale usage_month must read as zero usage in the guard and reset
	// the counter to 1 on increment.
	if !strings.Contains(query, "date_trunc('month', now())::date") {
		t.Fatal("quota query should compare usage_month against the current month")
	}
	if !strings.Contains(query, "else 1") {
		t.Fatal("quota query should reset the counter when the month rolled over")
	}
	if !strings.Contains(query, "else 0") {
		t.Fatal("quota guard should treat a stale month as zero usage")
	}
}

func TestApplySubscriptionChangeQueryGuardsOnEventTime(t *testing.T) {
	query := strings.ToLower(applySubscriptionChangeQuery)

	if !strings.Contains(query, "subscription_event_at is null or subscription_event_at < $6") {
		t.Fatal("subscription update should only apply events newer than the last applied one")
	}
	if !strings.Contains(query, "where id = $1") {
		t.Fatal("subscription update should be scoped to one tenant")
	}
}
