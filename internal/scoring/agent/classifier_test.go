package agent

import "testing"

func TestParseVerdictPlainJSON(t *testing.T) {
	raw := `{"is_lead": true, "urgency_score": 85, "sentiment": "positive",
		"entities": {"budget": "$10k"}, "recommendation": "Call today."}`

	verdict, err := ParseVerdict(raw)
	if err != nil {
		t.Fatalf("ParseVerdict: %v", err)
	}

	if !verdict.IsLead || verdict.Score != 85 {
		t.Fatalf("unexpected verdict: %+v", verdict)
	}
	if verdict.Entities["budget"] != "$10k" {
		t.Fatalf("entities not parsed: %+v", verdict.Entities)
	}
}

func TestParseVerdictStripsCodeFences(t *testing.T) {
	raw := "```json\n{\"is_lead\": false, \"urgency_score\": 0, \"sentiment\": \"neutral\", \"recommendation\": \"Ignore.\"}\n```"

	verdict, err := ParseVerdict(raw)
	if err != nil {
		t.Fatalf("ParseVerdict: %v", err)
	}
	if verdict.IsLead {
		t.Fatal("expected non-lead verdict")
	}
}

func TestParseVerdictRejectsGarbage(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"prose", "I think this is a great lead!"},
		{"score out of range", `{"is_lead": true, "urgency_score": 400, "sentiment": "neutral"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseVerdict(tc.raw); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}
