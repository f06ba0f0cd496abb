// Package agent contains the lead classifier: an LLM-backed scorer with a
// deterministic fallback so the scoring pipeline never fails on AI errors.
package agent

// Bucket values for scored leads.
const (
	BucketHot    = "HOT"
	BucketWarm   = "WARM"
	BucketCold   = "COLD"
	BucketIgnore = "IGNORE"
)

// Verdict sources.
const (
	SourceModel    = "model"
	SourceFallback = "fallback"
)

// Verdict is the classifier's judgment of one inbound message.
type Verdict struct {
	IsLead         bool           `json:"is_lead"`
	Score          int            `json:"urgency_score"`
	Sentiment      string         `json:"sentiment"`
	Entities       map[string]any `json:"entities"`
	Recommendation string         `json:"recommendation"`
	ModelVersion   string         `json:"-"`
	Source         string         `json:"-"`
}

// ClassifyInput is what the classifier sees about a message.
type ClassifyInput struct {
	Message  string
	Industry string
}

// BucketFor maps a verdict to its routing bucket. A non-lead is always
// IGNORE with score zero regardless of what the model put in the score
// field.
func BucketFor(isLead bool, score int) string {
	if !isLead {
		return BucketIgnore
	}
	switch {
	case score >= 80:
		return BucketHot
	case score >= 50:
		return BucketWarm
	default:
		return BucketCold
	}
}

// ClampScore bounds a score into [0, 100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Normalize enforces the verdict invariants: a non-lead scores zero, lead
// scores stay in range, and sentiment falls back to neutral.
func (v Verdict) Normalize() Verdict {
	if !v.IsLead {
		v.Score = 0
	} else {
		v.Score = ClampScore(v.Score)
	}

	switch v.Sentiment {
	case "positive", "neutral", "negative":
	default:
		v.Sentiment = "neutral"
	}

	if v.Entities == nil {
		v.Entities = map[string]any{}
	}

	return v
}
