package contracts

// EvidenceNode is one evidence post in the independence graph.
type EvidenceNode struct {
	ID          string `json:"id"`
	Platform    string `json:"platform"`
	Author      string `json:"author"`
	Domain      string `json:"domain,omitempty"`
	URL         string `json:"url,omitempty"`
	Snippet     string `json:"snippet,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

// EvidenceEdge records a dependency between two evidence nodes.
// Types: same_domain, same_author, near_duplicate.
type EvidenceEdge struct {
	Src  string `json:"src"`
	Dst  string `json:"dst"`
	Type string `json:"type"`
}

// VerificationHit marks evidence from a verifiable source class.
type VerificationHit struct {
	Type       string `json:"type"`
	EvidenceID string `json:"evidence_id"`
	Strength   string `json:"strength"`
}

// IndependenceBreakdown explains how the independence score was assembled.
type IndependenceBreakdown struct {
	EchoPenalty         float64 `json:"echo_penalty"`
	OriginDiversity     float64 `json:"origin_diversity"`
	AuthorDiversity     float64 `json:"author_diversity"`
	ModalityBonus       float64 `json:"modality_bonus"`
	TimeSeparationBonus float64 `json:"time_separation_bonus"`
	SameOriginRatio     float64 `json:"same_origin_ratio"`
}

// EvidenceGraph is the deterministic independence analysis of a signal's
// source posts.
type EvidenceGraph struct {
	IndependenceScore float64               `json:"independence_score"`
	UniquePlatforms   int                   `json:"unique_platforms"`
	UniqueDomains     int                   `json:"unique_domains"`
	UniqueAuthors     int                   `json:"unique_authors"`
	EchoRatio         float64               `json:"echo_ratio"`
	Breakdown         IndependenceBreakdown `json:"independence_breakdown"`
	SourceCredibility float64               `json:"source_credibility"`
	VerificationHits  []VerificationHit     `json:"verification_hits"`
	OriginTime        string                `json:"origin_time,omitempty"`
	Nodes             []EvidenceNode        `json:"nodes"`
	Edges             []EvidenceEdge        `json:"edges"`
}

// Tradability captures whether the primary instrument can realistically
// be traded right now.
type Tradability struct {
	Pass          bool     `json:"pass"`
	Reasons       []string `json:"reasons"`
	PrimarySymbol string   `json:"primary_symbol"`
	Price         *float64 `json:"price,omitempty"`
	DollarVolume  *float64 `json:"dollar_volume_est,omitempty"`
	AsOf          string   `json:"asof"`
}

// Controls is the hard-gate verdict for top-tier signals.
type Controls struct {
	HardFail         []string `json:"hard_fail"`
	Pass             bool     `json:"pass"`
	MinIndependence  float64  `json:"min_independence_for_top"`
	VerifiedSingleOK bool     `json:"verified_single_modality_ok"`
}

// CorroborationNote records an enrichment pass by the corroboration worker.
type CorroborationNote struct {
	UpdatedAt      string   `json:"updated_at"`
	AddedSources   int      `json:"added_sources"`
	AddedPlatforms []string `json:"added_platforms"`
}

// ResearchBundle is the auditable research object attached to each signal.
type ResearchBundle struct {
	Evidence      *EvidenceGraph     `json:"evidence"`
	Tradability   *Tradability       `json:"tradability"`
	Controls      *Controls          `json:"controls"`
	Corroboration *CorroborationNote `json:"corroboration,omitempty"`
}
