package engine

import "strings"

// MatchRule checks a message text against a rule set and returns the
// first matching partial. The "http" containment check is a cheap
// pre-filter, not a URL parser: it happily passes text like "shttpdoc",
// trading precision for simplicity. Rules are checked in their stored
// order; first match wins.
func MatchRule(text string, rules []string) (string, bool) {
	if len(rules) == 0 {
		return "", false
	}
	lower := strings.ToLower(text)
	if !strings.Contains(lower, "http") {
		return "", false
	}
	for _, partial := range rules {
		if strings.Contains(lower, partial) {
			return partial, true
		}
	}
	return "", false
}
