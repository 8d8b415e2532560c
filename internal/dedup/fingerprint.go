package dedup

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"

	"github.com/siftlabs/sift/internal/contracts"
)

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9 ]`)

var fingerprintStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "shall": true, "to": true,
	"of": true, "in": true, "for": true, "on": true, "with": true,
	"at": true, "by": true, "from": true, "as": true, "into": true,
	"through": true, "during": true, "before": true, "after": true,
	"above": true, "below": true, "between": true, "this": true,
	"that": true, "these": true, "those": true, "it": true, "its": true,
	"and": true, "but": true, "or": true, "nor": true, "not": true,
	"so": true, "yet": true, "both": true, "either": true, "neither": true,
	"each": true, "every": true, "all": true, "any": true, "few": true,
	"more": true, "most": true, "other": true, "some": true, "such": true,
	"no": true, "only": true, "own": true, "same": true, "than": true,
	"too": true, "very": true, "just": true, "also": true, "about": true,
	"which": true, "who": true, "whom": true, "what": true, "when": true,
	"where": true, "why": true, "how": true, "while": true, "if": true,
	"then": true, "because": true,
	"shows": true, "indicates": true, "suggests": true, "across": true,
	"multiple": true, "strong": true,
}

// Directional filler words stripped from thesis keywords so rephrased
// theses about the same move hash identically.
var directionWords = map[string]bool{
	"long": true, "short": true, "hedge": true,
	"bullish": true, "bearish": true, "buy": true, "sell": true,
	"upside": true, "downside": true,
}

// Fingerprint computes a stable 16-hex-char identity for a signal from
// its direction, sorted instrument symbols, time horizon and thesis
// keywords. Two signals describing the same move produce the same
// fingerprint regardless of thesis phrasing.
func Fingerprint(c *contracts.SignalCandidate) string {
	direction := strings.TrimSpace(strings.ToUpper(string(c.Direction)))

	symSet := make(map[string]bool)
	for _, inst := range c.Instruments {
		s := strings.TrimSpace(strings.ToUpper(inst.Symbol))
		if s != "" {
			symSet[s] = true
		}
	}
	syms := make([]string, 0, len(symSet))
	for s := range symSet {
		syms = append(syms, s)
	}
	sort.Strings(syms)

	horizon := strings.TrimSpace(strings.ToUpper(string(c.TimeHorizon)))

	keywords := thesisKeywords(c.Thesis, symSet)

	raw := direction + "|" + strings.Join(syms, "|") + "|" + horizon + "|" + strings.Join(keywords, " ")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])[:16]
}

// thesisKeywords normalizes the thesis into sorted unique keywords,
// dropping stopwords, direction fillers and the signal's own symbols.
func thesisKeywords(thesis string, symbols map[string]bool) []string {
	clean := nonAlnumRe.ReplaceAllString(strings.ToLower(thesis), " ")
	seen := make(map[string]bool)
	for _, w := range strings.Fields(clean) {
		if len(w) <= 2 || fingerprintStopwords[w] || directionWords[w] {
			continue
		}
		if symbols[strings.ToUpper(w)] {
			continue
		}
		seen[w] = true
	}
	out := make([]string, 0, len(seen))
	for w := range seen {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
