package rfa

import (
	"testing"

	"uniondash/backend/internal/domain"
)

func TestClassifyMatchesCaseInsensitiveSubstring(t *testing.T) {
	classifier := NewClassifier(DefaultConfiguration().FamilyRules)

	family, ok := classifier.Classify("plaquettes de frein vl premium")
	if !ok || family != "freinage" {
		t.Fatalf("expected freinage, got %q (ok=%v)", family, ok)
	}

	family, ok = classifier.Classify("FILTRES A AIR VL")
	if !ok || family != "filtre" {
		t.Fatalf("expected filtre, got %q (ok=%v)", family, ok)
	}
}

func TestClassifyUnknownSubFamilyIsANormalMiss(t *testing.T) {
	classifier := NewClassifier(DefaultConfiguration().FamilyRules)
	if _, ok := classifier.Classify("BATTERIES VL"); ok {
		t.Fatalf("expected no family for an uncovered sub-family")
	}
	if _, ok := classifier.Classify(""); ok {
		t.Fatalf("expected no family for an empty sub-family")
	}
}

func TestClassifyDeclarationOrderBreaksTies(t *testing.T) {
	rules := []domain.FamilyRule{
		{Family: "first", SubFamilies: []string{"JOINTS"}},
		{Family: "second", SubFamilies: []string{"JOINTS CULASSE"}},
	}
	classifier := NewClassifier(rules)

	family, ok := classifier.Classify("JOINTS CULASSE RENFORCES")
	if !ok || family != "first" {
		t.Fatalf("expected the first declared family to win the overlap, got %q", family)
	}
}

func TestClassifierSkipsDegenerateRules(t *testing.T) {
	classifier := NewClassifier([]domain.FamilyRule{
		{Family: "", SubFamilies: []string{"X"}},
		{Family: "thermique", SubFamilies: nil},
		{Family: "thermique", SubFamilies: []string{"THERMOSTATS"}},
	})
	family, ok := classifier.Classify("THERMOSTATS MOTEUR")
	if !ok || family != "thermique" {
		t.Fatalf("expected thermique after skipping degenerate rules, got %q", family)
	}
}
