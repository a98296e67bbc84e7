// Package proctor holds the violation catalog and the risk scorer: the pure
// policy core of the proctoring pipeline. No I/O, no clocks.
package proctor

import "github.com/seonix/seonix-backend/internal/model"

// DefaultWeight is applied to any kind missing from the catalog. Scoring
// stays total even if the catalog is extended before every caller learns
// about the new kind.
const DefaultWeight = 5

// weights are the per-kind scoring weights. All non-negative, which is what
// makes the recompute-from-scratch risk score monotonically non-decreasing.
var weights = map[model.ViolationType]int{
	model.ViolationNoFace:             8,
	model.ViolationMultipleFaces:      10,
	model.ViolationCellPhone:          15,
	model.ViolationProhibitedObject:   12,
	model.ViolationTabSwitch:          5,
	model.ViolationFullscreenExit:     6,
	model.ViolationCopyPaste:          7,
	model.ViolationSuspiciousActivity: 10,
}

// defaultSeverities are used when a report omits severity. Medium is the
// catalog-wide fallback.
var defaultSeverities = map[model.ViolationType]model.Severity{
	model.ViolationNoFace:             model.SeverityMedium,
	model.ViolationMultipleFaces:      model.SeverityHigh,
	model.ViolationCellPhone:          model.SeverityCritical,
	model.ViolationProhibitedObject:   model.SeverityMedium,
	model.ViolationTabSwitch:          model.SeverityMedium,
	model.ViolationFullscreenExit:     model.SeverityHigh,
	model.ViolationCopyPaste:          model.SeverityMedium,
	model.ViolationSuspiciousActivity: model.SeverityLow,
}

// labels are human-readable names for teacher-facing surfaces.
var labels = map[model.ViolationType]string{
	model.ViolationNoFace:             "No Face Detected",
	model.ViolationMultipleFaces:      "Multiple Faces Detected",
	model.ViolationCellPhone:          "Cell Phone Detected",
	model.ViolationProhibitedObject:   "Prohibited Object Detected",
	model.ViolationTabSwitch:          "Tab Switched",
	model.ViolationFullscreenExit:     "Exited Fullscreen",
	model.ViolationCopyPaste:          "Copy/Paste Attempted",
	model.ViolationSuspiciousActivity: "Suspicious Activity",
}

// Kinds returns the eight catalog kinds in a stable order.
func Kinds() []model.ViolationType {
	return []model.ViolationType{
		model.ViolationNoFace,
		model.ViolationMultipleFaces,
		model.ViolationCellPhone,
		model.ViolationProhibitedObject,
		model.ViolationTabSwitch,
		model.ViolationFullscreenExit,
		model.ViolationCopyPaste,
		model.ViolationSuspiciousActivity,
	}
}

// IsKnown reports whether t is one of the catalog kinds.
func IsKnown(t model.ViolationType) bool {
	_, ok := weights[t]
	return ok
}

// Weight returns the scoring weight for a kind, falling back to
// DefaultWeight for anything outside the catalog.
func Weight(t model.ViolationType) int {
	if w, ok := weights[t]; ok {
		return w
	}
	return DefaultWeight
}

// DefaultSeverity returns the severity assumed when a report omits one.
func DefaultSeverity(t model.ViolationType) model.Severity {
	if s, ok := defaultSeverities[t]; ok {
		return s
	}
	return model.SeverityMedium
}

// Label returns the display name for a kind.
func Label(t model.ViolationType) string {
	if l, ok := labels[t]; ok {
		return l
	}
	return string(t)
}
