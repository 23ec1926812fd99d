package resolve

import "strings"

// candidate is one way to read a reference: lookup is the name searched at
// the current entity and remaining is resolved below the match.
type candidate struct {
	lookup    string
	remaining []string
}

// candidates returns every split of reference, shortest lookup first.
func candidates(reference []string) []candidate {
	out := make([]candidate, 0, len(reference))
	for i := 1; i <= len(reference); i++ {
		out = append(out, candidate{
			lookup:    strings.Join(reference[:i], "."),
			remaining: reference[i:],
		})
	}
	return out
}

// Split breaks a reference into its dot-separated components. Empty
// components are dropped, so Split never yields an empty name.
func Split(text string) []string {
	var out []string
	for part := range strings.SplitSeq(text, ".") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
