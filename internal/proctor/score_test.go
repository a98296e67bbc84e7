package proctor

import (
	"testing"

	"github.com/seonix/seonix-backend/internal/model"
)

func TestScoreEmptySummaryIsZero(t *testing.T) {
	if got := Score(model.ViolationSummary{}); got != 0 {
		t.Fatalf("empty summary scored %d, want 0", got)
	}
}

func TestScoreWeightedSum(t *testing.T) {
	// One phone (15) + two tab switches (2*5) = 25.
	s := model.ViolationSummary{CellPhoneCount: 1, TabSwitchCount: 2}
	if got := Score(s); got != 25 {
		t.Fatalf("scored %d, want 25", got)
	}
}

func TestScoreCrossesFlagThreshold(t *testing.T) {
	// 3 phones (45) + 1 multiple-faces (10) = 55.
	s := model.ViolationSummary{CellPhoneCount: 3, MultipleFaceCount: 1}
	got := Score(s)
	if got != 55 {
		t.Fatalf("scored %d, want 55", got)
	}
	if !ShouldFlag(got) {
		t.Fatal("score 55 should flag for review")
	}
}

func TestScoreCappedAtMax(t *testing.T) {
	// 10 phones = raw 150, capped at 100.
	s := model.ViolationSummary{CellPhoneCount: 10}
	if got := Score(s); got != MaxScore {
		t.Fatalf("scored %d, want %d", got, MaxScore)
	}
}

func TestScoreBelowThresholdDoesNotFlag(t *testing.T) {
	if ShouldFlag(25) {
		t.Fatal("score 25 should not flag")
	}
	if !ShouldFlag(FlagThreshold) {
		t.Fatal("threshold score must flag")
	}
}

func TestScoreMonotonicUnderAppends(t *testing.T) {
	var s model.ViolationSummary
	prev := 0
	for _, kind := range []model.ViolationType{
		model.ViolationTabSwitch,
		model.ViolationNoFace,
		model.ViolationCopyPaste,
		model.ViolationCellPhone,
		model.ViolationCellPhone,
		model.ViolationMultipleFaces,
		model.ViolationProhibitedObject,
		model.ViolationCellPhone,
		model.ViolationCellPhone,
	} {
		s.Increment(kind)
		got := Score(s)
		if got < prev {
			t.Fatalf("score decreased from %d to %d after %s", prev, got, kind)
		}
		if got < 0 || got > MaxScore {
			t.Fatalf("score %d out of bounds", got)
		}
		prev = got
	}
}

func TestWeightFallbackForUnknownKind(t *testing.T) {
	if got := Weight(model.ViolationType("eye_tracking")); got != DefaultWeight {
		t.Fatalf("unknown kind weighted %d, want %d", got, DefaultWeight)
	}
}

func TestCatalogKnowsAllEightKinds(t *testing.T) {
	kinds := Kinds()
	if len(kinds) != 8 {
		t.Fatalf("catalog has %d kinds, want 8", len(kinds))
	}
	for _, k := range kinds {
		if !IsKnown(k) {
			t.Fatalf("kind %s not recognized by catalog", k)
		}
	}
	if IsKnown(model.ViolationType("other")) {
		t.Fatal("catalog must not recognize unknown kinds")
	}
}

func TestRescoreRaisesFlagOneWay(t *testing.T) {
	log := &model.ProctoringLog{
		Summary: model.ViolationSummary{CellPhoneCount: 4},
	}
	Rescore(log)
	if !log.FlaggedForReview {
		t.Fatal("expected log to be flagged at score 60")
	}

	// Even if the summary were somehow reduced, a rescore never unflags.
	log.Summary = model.ViolationSummary{}
	Rescore(log)
	if !log.FlaggedForReview {
		t.Fatal("rescore must never clear the review flag")
	}
	if log.RiskScore != 0 {
		t.Fatalf("risk score is %d, want 0", log.RiskScore)
	}
}
