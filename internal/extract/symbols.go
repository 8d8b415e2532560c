package extract

import (
	"regexp"
	"sort"
	"strings"
)

var (
	cashtagRe = regexp.MustCompile(`\$([A-Z]{1,5})\b`)
	tickerRe  = regexp.MustCompile(`\b([A-Z]{2,5})\b`)
)

// Uppercase words that look like tickers but are not.
var tickerStopwords = map[string]bool{
	"THE": true, "AND": true, "FOR": true, "ARE": true, "BUT": true,
	"NOT": true, "YOU": true, "ALL": true, "CAN": true, "HER": true,
	"WAS": true, "ONE": true, "OUR": true, "OUT": true, "HAS": true,
	"HIM": true, "HOW": true, "MAN": true, "NEW": true, "NOW": true,
	"OLD": true, "SEE": true, "WAY": true, "WHO": true, "BOY": true,
	"DID": true, "GET": true, "HIS": true, "LET": true, "SAY": true,
	"SHE": true, "TOO": true, "USE": true, "DAD": true, "MOM": true,
	"ITS": true, "BIG": true, "CEO": true, "CFO": true, "COO": true,
	"IPO": true, "ETF": true, "GDP": true, "CPI": true, "FED": true,
	"SEC": true, "FDA": true, "IMF": true, "ECB": true, "BOJ": true,
	"ATH": true, "ATL": true, "BPS": true, "DCF": true, "EPS": true,
	"ROI": true, "ROE": true, "YOY": true, "QOQ": true, "API": true,
	"AWS": true, "AI": true, "CT": true, "US": true, "UK": true,
	"EU": true, "JUST": true, "LIKE": true, "THAN": true, "THEM": true,
	"THEN": true, "THEY": true, "THIS": true, "THAT": true, "WHAT": true,
	"WHEN": true, "WILL": true, "WITH": true, "BEEN": true, "FROM": true,
	"HAVE": true, "MUCH": true, "VERY": true, "SOME": true, "ALSO": true,
	"BACK": true, "OVER": true, "ONLY": true, "EVEN": true, "MOST": true,
	"MADE": true, "AFTER": true, "LONG": true, "SHORT": true, "BULL": true,
	"BEAR": true, "PUMP": true, "DUMP": true, "HOLD": true, "SELL": true,
	"BUY": true, "CALL": true, "PUT": true, "RISK": true, "GAIN": true,
	"LOSS": true, "HIGH": true, "LOW": true, "OPEN": true, "CLOSE": true,
	"WEEK": true, "YEAR": true, "NEWS": true, "POST": true, "SAYS": true,
	"GOES": true, "HUGE": true, "MORE": true, "MANY": true, "GOOD": true,
	"DOWN": true, "WELL": true, "REAL": true, "FREE": true, "LAST": true,
	"NEXT": true, "BEST": true, "LOOK": true, "TAKE": true, "COME": true,
	"MAKE": true, "KNOW": true, "TIME": true, "NEED": true, "HERE": true,
	"KEEP": true, "FIND": true, "GIVE": true, "TELL": true, "HELP": true,
	"SHOW": true, "TURN": true, "MOVE": true, "LIVE": true, "FEEL": true,
	"FACT": true, "PART": true, "EACH": true, "SAME": true, "SURE": true,
	"DOES": true, "STILL": true, "STOCK": true, "TRADE": true, "ALERT": true,
	"WATCH": true, "GREEN": true, "DAILY": true, "PRICE": true, "SHARE": true,
	"THINK": true, "ABOUT": true, "COULD": true, "WOULD": true, "THEIR": true,
	"WHICH": true, "THESE": true, "THOSE": true, "OTHER": true, "FIRST": true,
	"EVERY": true, "NEVER": true, "UNDER": true, "MONEY": true, "GOING": true,
	"TODAY": true, "RIGHT": true, "GREAT": true, "WORLD": true, "WHERE": true,
	"BEING": true, "POINT": true,
}

// Bare uppercase words are only accepted as tickers when they appear here.
var knownTickers = map[string]bool{
	"AAPL": true, "MSFT": true, "NVDA": true, "GOOGL": true, "GOOG": true,
	"AMZN": true, "META": true, "TSLA": true, "BRK": true, "JPM": true,
	"V": true, "MA": true, "JNJ": true, "UNH": true, "XOM": true,
	"PG": true, "HD": true, "AVGO": true, "LLY": true, "SPY": true,
	"QQQ": true, "DIA": true, "IWM": true, "AMD": true, "INTC": true,
	"QCOM": true, "CRM": true, "ADBE": true, "ORCL": true, "NFLX": true,
	"DIS": true, "COST": true, "WMT": true, "NKE": true, "BA": true,
	"CAT": true, "GS": true, "MS": true, "BAC": true, "WFC": true,
	"C": true, "BLK": true, "COIN": true, "SQ": true, "PYPL": true,
	"UBER": true, "ABNB": true, "SHOP": true, "SNOW": true, "PLTR": true,
	"CRWD": true, "PANW": true, "NET": true, "DDOG": true, "MU": true,
	"MRVL": true, "ARM": true, "ASML": true, "TXN": true, "AMAT": true,
	"LRCX": true, "KLAC": true, "PFE": true, "ABBV": true, "MRK": true,
	"BMY": true, "AMGN": true, "GILD": true, "ISRG": true, "TMO": true,
	"XLF": true, "XLE": true, "XLV": true, "XLY": true, "XLI": true,
	"XLU": true, "XLB": true, "XLRE": true, "XLC": true, "BTC": true,
	"ETH": true, "SOL": true, "DOGE": true, "XRP": true, "ADA": true,
	"AVAX": true, "MATIC": true, "LINK": true, "MSTR": true, "MARA": true,
	"RIOT": true, "HOOD": true, "SOFI": true, "SMCI": true, "DELL": true,
	"HPQ": true, "T": true, "VZ": true, "TMUS": true, "CMCSA": true,
	"KO": true, "PEP": true, "PM": true, "MO": true, "GE": true,
	"HON": true, "UPS": true, "RTX": true, "LMT": true, "DE": true,
}

// Company name to ticker resolution, keyed by lowercase name.
var entityTickerMap = map[string]string{
	"apple": "AAPL", "apple inc": "AAPL",
	"microsoft": "MSFT", "microsoft corp": "MSFT",
	"amazon": "AMZN", "amazon.com": "AMZN",
	"google": "GOOG", "alphabet": "GOOG",
	"meta": "META", "meta platforms": "META", "facebook": "META",
	"nvidia": "NVDA", "nvidia corp": "NVDA",
	"tesla": "TSLA", "tesla inc": "TSLA",
	"netflix": "NFLX",
	"broadcom": "AVGO",
	"amd": "AMD", "advanced micro devices": "AMD",
	"intel": "INTC", "intel corp": "INTC",
	"qualcomm":   "QCOM",
	"salesforce": "CRM",
	"adobe":      "ADBE",
	"oracle":     "ORCL",
	"palantir":   "PLTR",
	"snowflake":  "SNOW",
	"crowdstrike": "CRWD", "palo alto networks": "PANW",
	"uber": "UBER", "uber technologies": "UBER",
	"airbnb": "ABNB", "spotify": "SPOT",
	"snap": "SNAP", "snapchat": "SNAP",
	"shopify": "SHOP", "datadog": "DDOG", "mongodb": "MDB",
	"cloudflare": "NET",
	"asml":       "ASML",
	"arm":        "ARM", "arm holdings": "ARM",
	"micron": "MU", "micron technology": "MU",
	"jpmorgan": "JPM", "jpmorgan chase": "JPM", "jp morgan": "JPM",
	"bank of america": "BAC", "bofa": "BAC",
	"wells fargo": "WFC",
	"citigroup":   "C", "citi": "C",
	"goldman sachs":  "GS",
	"morgan stanley": "MS",
	"blackrock":      "BLK",
	"berkshire hathaway": "BRK.B", "berkshire": "BRK.B",
	"visa": "V", "mastercard": "MA",
	"american express": "AXP", "amex": "AXP",
	"paypal": "PYPL",
	"block":  "SQ", "square": "SQ",
	"robinhood": "HOOD", "coinbase": "COIN",
	"boeing": "BA", "lockheed martin": "LMT",
	"raytheon": "RTX", "rtx": "RTX",
	"general electric": "GE", "ge": "GE",
	"honeywell": "HON", "caterpillar": "CAT",
	"unitedhealth": "UNH", "unitedhealth group": "UNH",
	"johnson & johnson": "JNJ", "j&j": "JNJ",
	"pfizer": "PFE", "eli lilly": "LLY", "moderna": "MRNA",
	"exxon": "XOM", "exxon mobil": "XOM",
	"chevron": "CVX",
	"walmart": "WMT", "costco": "COST",
	"disney": "DIS", "nike": "NKE",
	"mcdonald's": "MCD", "starbucks": "SBUX",
	"bitcoin": "BTC", "ethereum": "ETH", "solana": "SOL",
	"dogecoin": "DOGE", "microstrategy": "MSTR",
}

var shortNameRes = buildShortNameRes()

// Names of four characters or fewer require word-boundary matches, so
// "ge" does not fire inside "general".
func buildShortNameRes() map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp)
	for name := range entityTickerMap {
		if len(name) <= 4 {
			out[name] = regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
		}
	}
	return out
}

// ExtractSymbols pulls instrument symbols out of post content using
// cashtags, known uppercase tickers, and company name resolution.
func ExtractSymbols(content string) []string {
	lower := strings.ToLower(content)
	found := make(map[string]bool)

	for _, m := range cashtagRe.FindAllStringSubmatch(content, -1) {
		found[m[1]] = true
	}

	for _, m := range tickerRe.FindAllStringSubmatch(content, -1) {
		w := m[1]
		if knownTickers[w] && !tickerStopwords[w] {
			found[w] = true
		}
	}

	for name, ticker := range entityTickerMap {
		if re, ok := shortNameRes[name]; ok {
			if re.MatchString(lower) {
				found[ticker] = true
			}
		} else if strings.Contains(lower, name) {
			found[ticker] = true
		}
	}

	out := make([]string, 0, len(found))
	for t := range found {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}
