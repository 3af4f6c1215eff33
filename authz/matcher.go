package authz

import "strings"

// MatchPattern reports whether pattern grants required. Both are
// "resource:action"; "*" matches either half, and "*" or "*:*" alone
// matches everything.
func MatchPattern(pattern, required string) bool {
	if pattern == required || pattern == "*" || pattern == "*:*" {
		return true
	}

	patResource, patAction, patPair := strings.Cut(pattern, ":")
	reqResource, reqAction, reqPair := strings.Cut(required, ":")
	if !patPair || !reqPair {
		return false
	}
	return matchWildcard(patResource, reqResource) && matchWildcard(patAction, reqAction)
}

// MatchAny reports whether any pattern grants required.
func MatchAny(patterns []string, required string) bool {
	for _, p := range patterns {
		if MatchPattern(p, required) {
			return true
		}
	}
	return false
}

func matchWildcard(pattern, value string) bool {
	return pattern == "*" || pattern == value
}
