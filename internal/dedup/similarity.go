package dedup

import "strings"

var similarityStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "to": true, "of": true,
	"in": true, "for": true, "on": true, "with": true, "at": true,
	"by": true, "from": true, "as": true, "and": true, "or": true,
	"not": true, "this": true, "that": true, "it": true, "its": true,
	"has": true, "have": true, "had": true, "which": true, "who": true,
}

// ThesisSimilarity computes Jaccard similarity between two thesis
// strings over normalized word sets. Empty inputs score 0.
func ThesisSimilarity(a, b string) float64 {
	sa := similarityTokens(a)
	sb := similarityTokens(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0.0
	}
	inter := 0
	for w := range sa {
		if sb[w] {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	if union == 0 {
		return 0.0
	}
	return float64(inter) / float64(union)
}

func similarityTokens(s string) map[string]bool {
	clean := nonAlnumRe.ReplaceAllString(strings.ToLower(s), " ")
	out := make(map[string]bool)
	for _, w := range strings.Fields(clean) {
		if len(w) > 2 && !similarityStopwords[w] {
			out[w] = true
		}
	}
	return out
}
