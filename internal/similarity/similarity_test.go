package similarity

import "testing"

func TestScoreIdenticalNames(t *testing.T) {
	if got := Score("Gateron Oil King", "Gateron Oil King"); got != 1.0 {
		t.Fatalf("expected identical names to score 1.0, got %f", got)
	}
}

func TestScoreIsCaseInsensitive(t *testing.T) {
	if got := Score("Cherry MX Red", "cherry mx red"); got != 1.0 {
		t.Fatalf("expected case-insensitive match to score 1.0, got %f", got)
	}
}

func TestScoreEmptyInputs(t *testing.T) {
	if got := Score("", ""); got != 1.0 {
		t.Fatalf("expected two empty names to score 1.0, got %f", got)
	}
	if got := Score("Akko CS Jelly", ""); got != 0.0 {
		t.Fatalf("expected empty versus non-empty to score 0.0, got %f", got)
	}
}

func TestIsSimilarBoundaryIsExclusive(t *testing.T) {
	// "abcdefghij" vs "abcdefghXY": distance 2 over length 10 scores exactly 0.80,
	// which must not count as similar.
	first := "abcdefghij"
	second := "abcdefghXY"
	if got := Score(first, second); got != 0.8 {
		t.Fatalf("expected boundary score of 0.8, got %f", got)
	}
	if IsSimilar(first, second) {
		t.Fatalf("score of exactly 0.8 must not be treated as similar")
	}
}

func TestIsSimilarAboveBoundary(t *testing.T) {
	// Distance 1 over length 10 scores 0.90.
	if !IsSimilar("abcdefghij", "abcdefghiX") {
		t.Fatalf("expected score of 0.9 to be similar")
	}
}

func TestScoreDissimilarNames(t *testing.T) {
	if IsSimilar("Gateron Yellow", "Boba U4T") {
		t.Fatalf("unrelated names should not be similar")
	}
}
