package ingest

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestGenerateAPIKey(t *testing.T) {
	plaintext, hash, prefix, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey failed: %v", err)
	}

	if !strings.HasPrefix(plaintext, "lrk_") {
		t.Errorf("key should carry the lrk_ prefix, got %q", plaintext)
	}
	if len(prefix) != 12 || !strings.HasPrefix(plaintext, prefix) {
		t.Errorf("prefix should be the first 12 chars of the key, got %q", prefix)
	}
	if hash == plaintext {
		t.Error("stored hash must not equal the plaintext key")
	}
	if HashKey(plaintext) != hash {
		t.Error("HashKey should reproduce the stored hash for lookups")
	}

	_, hash2, _, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey failed: %v", err)
	}
	if hash == hash2 {
		t.Error("two generated keys should never collide")
	}
}

func TestTenantFromAddress(t *testing.T) {
	tenantID := uuid.New()

	tests := []struct {
		name string
		addr string
		want uuid.UUID
		ok   bool
	}{
		{"plus addressed", "leads+" + tenantID.String() + "@inbox.example.com", tenantID, true},
		{"no plus part", "leads@inbox.example.com", uuid.Nil, false},
		{"empty plus part", "leads+@inbox.example.com", uuid.Nil, false},
		{"not a uuid", "leads+hello@inbox.example.com", uuid.Nil, false},
		{"no domain", "leads+" + tenantID.String(), uuid.Nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tenantFromAddress(tt.addr)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("tenantFromAddress(%q) = (%v, %v), want (%v, %v)", tt.addr, got, ok, tt.want, tt.ok)
			}
		})
	}
}
