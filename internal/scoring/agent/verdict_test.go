package agent

import "testing"

func TestBucketThresholds(t *testing.T) {
	cases := []struct {
		name   string
		isLead bool
		score  int
		want   string
	}{
		{"cold just below warm", true, 49, BucketCold},
		{"warm lower bound", true, 50, BucketWarm},
		{"warm upper bound", true, 79, BucketWarm},
		{"hot lower bound", true, 80, BucketHot},
		{"hot max", true, 100, BucketHot},
		{"cold floor", true, 0, BucketCold},
		{"non-lead ignores high score", false, 95, BucketIgnore},
		{"non-lead zero", false, 0, BucketIgnore},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BucketFor(tc.isLead, tc.score); got != tc.want {
				t.Fatalf("BucketFor(%v, %d) = %q, want %q", tc.isLead, tc.score, got, tc.want)
			}
		})
	}
}

func TestNormalizeForcesZeroScoreForNonLeads(t *testing.T) {
	verdict := Verdict{IsLead: false, Score: 88, Sentiment: "positive"}.Normalize()

	if verdict.Score != 0 {
		t.Fatalf("non-lead score = %d, want 0", verdict.Score)
	}
}

func TestNormalizeClampsAndDefaults(t *testing.T) {
	verdict := Verdict{IsLead: true, Score: 140, Sentiment: "ecstatic"}.Normalize()

	if verdict.Score != 100 {
		t.Fatalf("score = %d, want clamped 100", verdict.Score)
	}
	if verdict.Sentiment != "neutral" {
		t.Fatalf("sentiment = %q, want neutral default", verdict.Sentiment)
	}
	if verdict.Entities == nil {
		t.Fatal("entities should default to an empty map")
	}
}
