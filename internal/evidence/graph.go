package evidence

import (
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/siftlabs/sift/internal/contracts"
)

// Independence formula weights.
const (
	platformTerm  = 0.28
	originTerm    = 0.22
	authorTerm    = 0.18
	modalityStep  = 0.12
	timeSepCoeff  = 0.08
	echoCoeff     = 0.45
	edgeLimit     = 60
	nodeLimit     = 25
	nearDupThresh = 0.75
)

// BuildGraph derives the evidence graph and independence score from a
// signal's source posts. The score rewards breadth of platforms,
// domains and authors, and penalizes echo chambers where most evidence
// traces back to one origin.
func BuildGraph(sources []contracts.SourceRef, eventTime *time.Time) *contracts.EvidenceGraph {
	nodes := buildNodes(sources)

	domains := make(map[string]int)
	authors := make(map[string]int)
	platforms := make(map[string]bool)
	originTime := ""

	for _, n := range nodes {
		if n.Domain != "" {
			domains[n.Domain]++
		}
		if n.Author != "" {
			authors[n.Author]++
		}
		if n.Platform != "" {
			platforms[n.Platform] = true
		}
		if n.PublishedAt != "" && (originTime == "" || n.PublishedAt < originTime) {
			originTime = n.PublishedAt
		}
	}

	uniqPlatforms := len(platforms)
	uniqDomains := len(domains)
	uniqAuthors := len(authors)
	n := len(nodes)

	echoRatio := 0.0
	sameOriginRatio := 0.0
	if n > 0 {
		domTop := maxCount(domains)
		authTop := maxCount(authors)
		echoRatio = float64(max(domTop, authTop)) / float64(n)

		samePairs, totalPairs := 0, 0
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				totalPairs++
				if nodes[i].Domain != "" && nodes[i].Domain == nodes[j].Domain {
					samePairs++
				}
			}
		}
		if totalPairs > 0 {
			sameOriginRatio = float64(samePairs) / float64(totalPairs)
		}
	}

	modalities := make(map[string]bool)
	for p := range platforms {
		modalities[modality(p)] = true
	}
	modalityBonus := modalityStep * math.Min(math.Max(float64(len(modalities)-1), 0), 3)

	timeSepBonus := timeSeparationBonus(nodes)

	originDiversity := 0.0
	authorDiversity := 0.0
	if n > 0 {
		originDiversity = clamp(float64(uniqDomains)/float64(n)*2.0, 0, 1)
		authorDiversity = clamp(float64(uniqAuthors)/float64(n)*2.0, 0, 1)
	}
	echoPenalty := clamp(0.55*echoRatio+0.45*sameOriginRatio, 0, 1) * echoCoeff

	raw := platformTerm * clamp(float64(uniqPlatforms)/3.0, 0, 1)
	raw += originTerm * originDiversity
	raw += authorTerm * authorDiversity
	raw += modalityBonus
	raw += timeSepBonus
	raw -= echoPenalty

	independence := clamp(raw, 0, 1)

	hits := verificationHits(nodes)

	credibility := 0.25 +
		0.20*math.Min(float64(uniqDomains), 4)/4.0 +
		0.25*math.Min(float64(uniqPlatforms), 3)/3.0
	for _, h := range hits {
		if h.Strength == "high" {
			credibility += 0.2
			break
		}
	}
	credibility = clamp(credibility, 0, 1)

	if originTime == "" && eventTime != nil {
		originTime = eventTime.UTC().Format(time.RFC3339)
	}

	kept := nodes
	if len(kept) > nodeLimit {
		kept = kept[:nodeLimit]
	}

	return &contracts.EvidenceGraph{
		IndependenceScore: round3(independence),
		UniquePlatforms:   uniqPlatforms,
		UniqueDomains:     uniqDomains,
		UniqueAuthors:     uniqAuthors,
		EchoRatio:         round3(echoRatio),
		Breakdown: contracts.IndependenceBreakdown{
			EchoPenalty:         round3(echoPenalty),
			OriginDiversity:     round3(originDiversity),
			AuthorDiversity:     round3(authorDiversity),
			ModalityBonus:       round3(modalityBonus),
			TimeSeparationBonus: round3(timeSepBonus),
			SameOriginRatio:     round3(sameOriginRatio),
		},
		SourceCredibility: round3(credibility),
		VerificationHits:  hits,
		OriginTime:        originTime,
		Nodes:             kept,
		Edges:             buildEdges(kept),
	}
}

// NoveltyScore derives a rough novelty estimate from cluster
// convergence, used by the verified-single-modality exception.
func NoveltyScore(convergence float64) float64 {
	return round3(clamp(0.5+0.4*clamp(convergence, 0, 1), 0, 1))
}

func buildNodes(sources []contracts.SourceRef) []contracts.EvidenceNode {
	out := make([]contracts.EvidenceNode, 0, len(sources))
	for _, s := range sources {
		snippet := s.Snippet
		if len(snippet) > 240 {
			snippet = snippet[:240]
		}
		out = append(out, contracts.EvidenceNode{
			ID:          s.PostID,
			Platform:    strings.ToLower(s.Platform),
			Author:      strings.TrimSpace(s.Author),
			Domain:      domainOf(s.URL),
			URL:         s.URL,
			Snippet:     snippet,
			PublishedAt: s.PublishedAt,
		})
	}
	return out
}

func buildEdges(nodes []contracts.EvidenceNode) []contracts.EvidenceEdge {
	var edges []contracts.EvidenceEdge
	for i := 0; i < len(nodes) && len(edges) < edgeLimit; i++ {
		for j := i + 1; j < len(nodes) && len(edges) < edgeLimit; j++ {
			a, b := nodes[i], nodes[j]
			if a.Domain != "" && a.Domain == b.Domain {
				edges = append(edges, contracts.EvidenceEdge{Src: a.ID, Dst: b.ID, Type: "same_domain"})
			}
			if a.Author != "" && a.Author == b.Author {
				edges = append(edges, contracts.EvidenceEdge{Src: a.ID, Dst: b.ID, Type: "same_author"})
			}
			if snippetJaccard(a.Snippet, b.Snippet) >= nearDupThresh {
				edges = append(edges, contracts.EvidenceEdge{Src: a.ID, Dst: b.ID, Type: "near_duplicate"})
			}
		}
	}
	return edges
}

func verificationHits(nodes []contracts.EvidenceNode) []contracts.VerificationHit {
	var hits []contracts.VerificationHit
	for _, n := range nodes {
		dom := strings.ToLower(n.Domain)
		switch {
		case strings.HasSuffix(dom, "sec.gov") || n.Platform == "sec_edgar" || n.Platform == "sec_filings":
			hits = append(hits, contracts.VerificationHit{Type: "regulatory_filing", EvidenceID: n.ID, Strength: "high"})
		case strings.Contains(dom, "status") || strings.Contains(dom, "downdetector"):
			hits = append(hits, contracts.VerificationHit{Type: "outage_signal", EvidenceID: n.ID, Strength: "medium"})
		case (n.Platform == "news_rss" || n.Platform == "finviz_news") && dom != "":
			hits = append(hits, contracts.VerificationHit{Type: "independent_news", EvidenceID: n.ID, Strength: "medium"})
		}
		if len(hits) >= 8 {
			break
		}
	}
	return hits
}

func modality(platform string) string {
	switch platform {
	case "sec_edgar", "sec_filings", "government", "patent", "patents", "patent_filings", "congressional_trades":
		return "official"
	case "news_rss", "news", "finviz_news":
		return "news"
	case "market_context", "options_flow", "short_interest", "commodities":
		return "market_metric"
	default:
		return "social"
	}
}

func timeSeparationBonus(nodes []contracts.EvidenceNode) float64 {
	var published []time.Time
	for _, n := range nodes {
		if n.PublishedAt == "" {
			continue
		}
		if ts, err := time.Parse(time.RFC3339, n.PublishedAt); err == nil {
			published = append(published, ts)
		}
	}
	if len(published) < 2 {
		return 0
	}
	earliest, latest := published[0], published[0]
	for _, ts := range published[1:] {
		if ts.Before(earliest) {
			earliest = ts
		}
		if ts.After(latest) {
			latest = ts
		}
	}
	spanHours := latest.Sub(earliest).Hours()
	return clamp(spanHours/12.0, 0, 1) * timeSepCoeff
}

func snippetJaccard(a, b string) float64 {
	sa := snippetTokens(a)
	sb := snippetTokens(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	inter := 0
	for w := range sa {
		if sb[w] {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

func snippetTokens(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if len(w) > 2 {
			out[w] = true
		}
	}
	return out
}

func domainOf(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	return host
}

func maxCount(m map[string]int) int {
	top := 0
	for _, c := range m {
		if c > top {
			top = c
		}
	}
	return top
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
