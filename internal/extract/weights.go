package extract

// Platform exclusivity weights. High values mean retail-first platforms
// where information surfaces before institutional channels pick it up;
// low values mean commodity feeds everyone already watches.
var sourceExclusivity = map[string]float64{
	"tiktok":            0.95,
	"instagram":         0.90,
	"blind":             0.90,
	"4chan_pol":         0.90,
	"glassdoor":         0.85,
	"amazon_reviews":    0.85,
	"4chan_biz":         0.85,
	"app_store":         0.80,
	"appstore":          0.80,
	"google_play":       0.80,
	"telegram":          0.80,
	"discord":           0.75,
	"whale_tracker":     0.75,
	"github_trending":   0.70,
	"options_flow":      0.70,
	"patent_filings":    0.65,
	"patents":           0.65,
	"reddit":            0.60,
	"linkedin":          0.60,
	"youtube":           0.55,
	"stocktwits":        0.55,
	"google_trends":     0.50,
	"clinical_trials":   0.40,
	"hackernews":        0.30,
	"fda":               0.30,
	"federal_register":  0.25,
	"twitter":           0.25,
	"sec_edgar":         0.20,
	"finviz_news":       0.20,
	"news_rss":          0.15,
	"commodities":       0.15,
	"earnings_calendar": 0.10,
}

const (
	// DefaultExclusivity applies to platforms missing from the table.
	DefaultExclusivity = 0.5

	// ExclusivityHigh marks retail-first platforms.
	ExclusivityHigh = 0.65

	// ExclusivityLow marks commodity feeds.
	ExclusivityLow = 0.35
)

// PlatformWeight returns the exclusivity weight for a platform.
func PlatformWeight(platform string) float64 {
	if w, ok := sourceExclusivity[platform]; ok {
		return w
	}
	return DefaultExclusivity
}
