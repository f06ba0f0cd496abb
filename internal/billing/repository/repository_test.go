package repository

import (
	"strings"
	"testing"
)

func TestMarkProcessedQueryIsIdempotent(t *testing.T) {
	query := strings.ToLower(markProcessedQuery)

	requiredFragments := []string{
		"insert into webhook_events",
		"on conflict (event_id) do nothing",
	}

	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected claim query fragment %q to be present", fragment)
		}
	}
}
