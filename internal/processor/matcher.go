package processor

import (
	"strings"

	"kairoi/internal/store"
)

// BestMatch implements §4.2's pairing rule: among the rules whose pattern is
// a prefix of identifier, the longest pattern wins; ties are broken by the
// lexicographically smallest rule identifier (§4.1 invariant 5). It reports
// ok=false when no rule matches at all.
func BestMatch(identifier string, rules []store.Rule) (store.Rule, bool) {
	var best store.Rule
	found := false

	for _, rule := range rules {
		if !strings.HasPrefix(identifier, rule.Pattern) {
			continue
		}

		switch {
		case !found:
			best, found = rule, true
		case len(rule.Pattern) > len(best.Pattern):
			best = rule
		case len(rule.Pattern) == len(best.Pattern) && rule.ID < best.ID:
			best = rule
		}
	}

	return best, found
}
