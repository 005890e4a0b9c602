package processor

import (
	"testing"

	"kairoi/internal/store"
)

func rule(id, pattern string) store.Rule {
	return store.Rule{ID: id, Pattern: pattern, RunnerKind: store.RunnerShell, RunnerArgs: []string{"/bin/true"}}
}

func TestBestMatchNoRules(t *testing.T) {
	_, ok := BestMatch("app.x", nil)
	if ok {
		t.Fatal("expected no match against an empty rule set")
	}
}

func TestBestMatchPicksLongestPrefix(t *testing.T) {
	rules := []store.Rule{
		rule("r1", "app."),
		rule("r2", "app.special."),
	}

	best, ok := BestMatch("app.special.y", rules)
	if !ok {
		t.Fatal("expected a match")
	}
	if best.ID != "r2" {
		t.Errorf("expected r2 (longer prefix), got %s", best.ID)
	}
}

func TestBestMatchTieBreaksLexicographically(t *testing.T) {
	rules := []store.Rule{
		rule("zebra", "app."),
		rule("alpha", "app."),
	}

	best, ok := BestMatch("app.x", rules)
	if !ok {
		t.Fatal("expected a match")
	}
	if best.ID != "alpha" {
		t.Errorf("expected alpha (lexicographically smallest), got %s", best.ID)
	}
}

func TestBestMatchIgnoresNonPrefixRules(t *testing.T) {
	rules := []store.Rule{
		rule("r1", "other."),
	}

	_, ok := BestMatch("app.x", rules)
	if ok {
		t.Fatal("expected no match when no pattern is a prefix")
	}
}
