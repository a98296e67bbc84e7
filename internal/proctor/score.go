package proctor

import "github.com/seonix/seonix-backend/internal/model"

// MaxScore caps the risk score.
const MaxScore = 100

// FlagThreshold is the score at which a log is auto-flagged for review.
// Flagging is one-directional: the scorer only ever raises the flag, a
// teacher's explicit review is the only way to clear it.
const FlagThreshold = 50

// Score computes the risk score for a violation summary:
// min(Σ count*weight, 100). Always in [0, MaxScore].
func Score(summary model.ViolationSummary) int {
	raw := 0
	for kind, count := range summary.Counts() {
		raw += count * Weight(kind)
	}
	if raw > MaxScore {
		return MaxScore
	}
	return raw
}

// ShouldFlag reports whether a score crosses the review threshold.
func ShouldFlag(score int) bool {
	return score >= FlagThreshold
}

// Rescore recomputes the log's risk score from its summary and applies the
// one-directional flag rule. Returns the new score.
func Rescore(log *model.ProctoringLog) int {
	log.RiskScore = Score(log.Summary)
	if ShouldFlag(log.RiskScore) {
		log.FlaggedForReview = true
	}
	return log.RiskScore
}
