package gate

// Single noisy platforms whose solo signals are capped hard.
var noisyPlatforms = map[string]bool{
	"stocktwits": true,
	"4chan":      true,
	"4chan_pol":  true,
	"4chan_biz":  true,
	"reddit_wsb": true,
	"telegram":   true,
}

// Single high-trust platforms whose solo signals keep a workable ceiling.
var highTrustPlatforms = map[string]bool{
	"congressional_trades": true,
	"prediction_markets":   true,
	"sec_edgar":            true,
	"sec_filings":          true,
}

// Ceiling returns the maximum score the evidence base supports. Thin
// evidence cannot produce a top-tier signal no matter what the oracle
// thinks of it.
func Ceiling(platforms []string, sourceCount int) int {
	var limit int
	switch {
	case len(platforms) == 1 && sourceCount <= 2:
		limit = 40
	case len(platforms) == 2 || sourceCount <= 4:
		limit = 65
	default:
		limit = 100
	}

	if len(platforms) == 1 {
		if noisyPlatforms[platforms[0]] && limit > 25 {
			limit = 25
		}
		if highTrustPlatforms[platforms[0]] && limit < 55 {
			limit = 55
		}
	}
	return limit
}
