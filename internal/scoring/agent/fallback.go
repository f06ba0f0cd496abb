package agent

import (
	"regexp"
	"strings"
)

// fallbackModelVersion tags leads scored without the model so they can be
// found and re-scored later.
const fallbackModelVersion = "heuristic-v1"

// fallbackCap keeps heuristic scores out of the HOT band: a human should
// never be paged off a keyword match alone.
const fallbackCap = 75

const fallbackBase = 50

var urgencyWords = []string{
	"urgent", "urgently", "asap", "immediately", "right away", "emergency",
	"as soon as possible", "time sensitive",
}

var deadlineWords = []string{
	"deadline", "by friday", "by monday", "this week", "end of month",
	"end of week", "eod", "before the",
}

// moneyPattern matches large budgets: $12,000 / $8000 / 50k.
var moneyPattern = regexp.MustCompile(`\$\s?\d{1,3}(,\d{3})+|\$\s?\d{4,}|\b\d{2,4}k\b`)

// FallbackVerdict is the deterministic verdict used when the model is
// unreachable, times out, or returns garbage. It is always a valid lead
// verdict: manual review beats a dropped message.
func FallbackVerdict(message string) Verdict {
	score := fallbackBase + signalBoost(message)
	if score > fallbackCap {
		score = fallbackCap
	}

	return Verdict{
		IsLead:         true,
		Score:          score,
		Sentiment:      "neutral",
		Entities:       map[string]any{},
		Recommendation: "Manual review required: automated classification was unavailable.",
		ModelVersion:   fallbackModelVersion,
		Source:         SourceFallback,
	}.Normalize()
}

// LexicalFloor returns the minimum score justified by lexical signals in the
// message, or 0 when there are none. Applied as a monotone floor on model
// verdicts: explicit urgency in the text can raise a score, never lower it.
func LexicalFloor(message string) int {
	boost := signalBoost(message)
	if boost == 0 {
		return 0
	}

	floor := fallbackBase + boost
	if floor > fallbackCap {
		floor = fallbackCap
	}
	return floor
}

// signalBoost counts signal categories, not individual hits: "urgent urgent
// urgent" is one signal.
func signalBoost(message string) int {
	lower := strings.ToLower(message)

	boost := 0
	if containsAny(lower, urgencyWords) {
		boost += 10
	}
	if containsAny(lower, deadlineWords) {
		boost += 10
	}
	if moneyPattern.MatchString(lower) {
		boost += 10
	}
	return boost
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
