package repository

import (
	"strings"
	"testing"
)

func TestClaimRewardQueryIsConditional(t *testing.T) {
	query := strings.ToLower(claimRewardQuery)

	// The status predicate is the at-most-once gate for reward credits.
	if !strings.Contains(query, "status = 'qualified'") {
		t.Fatal("claim query must only match qualified referrals")
	}
	if !strings.Contains(query, "status = 'rewarded'") {
		t.Fatal("claim query must move the referral to rewarded")
	}
}

func TestQualifyQueryMatchesOldestPendingCaseInsensitively(t *testing.T) {
	query := strings.ToLower(qualifyFirstPendingQuery)

	requiredFragments := []string{
		"lower(referee_email) = lower($1)",
		"status = 'pending'",
		"order by submitted_at",
		"limit 1",
	}
	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected qualify query fragment %q to be present", fragment)
		}
	}
}

func TestRewardableQueryEnforcesMaturityCutoff(t *testing.T) {
	query := strings.ToLower(listRewardableQuery)

	if !strings.Contains(query, "qualified_at <= $2") {
		t.Fatal("rewardable query must gate on the qualification cutoff")
	}
	if !strings.Contains(query, "referee_tenant_id = $1") {
		t.Fatal("rewardable query must scope to the paying referee tenant")
	}
}
