package grading

import "strings"

// textMatch compares a fill-in-the-blank answer against the key.
// Both sides are trimmed; case folding is controlled by the question.
func textMatch(got, want string, caseSensitive bool) bool {
	got = strings.TrimSpace(got)
	want = strings.TrimSpace(want)
	if caseSensitive {
		return got == want
	}
	return strings.EqualFold(got, want)
}
