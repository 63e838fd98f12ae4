package forwarder

import "strings"

// ShouldForward reports whether a message with the given text passes the
// keyword filter. An empty keyword set forwards everything; otherwise at
// least one keyword must occur in the text, case-insensitively.
func ShouldForward(keywords []string, text string) bool {
	if len(keywords) == 0 {
		return true
	}
	return len(MatchedKeywords(keywords, text)) > 0
}

// MatchedKeywords returns the keywords that occur in text, preserving the
// configured keyword order. Matching is a case-insensitive substring test.
func MatchedKeywords(keywords []string, text string) []string {
	lower := strings.ToLower(text)
	var matched []string
	for _, k := range keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			matched = append(matched, k)
		}
	}
	return matched
}
