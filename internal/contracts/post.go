package contracts

import "time"

// Post is a raw social/news post as collected by the scrapers.
type Post struct {
	ID          string    `json:"id"`
	Platform    string    `json:"platform"`
	Author      string    `json:"author"`
	URL         string    `json:"url,omitempty"`
	Content     string    `json:"content"`
	PublishedAt time.Time `json:"published_at"`
	ScrapedAt   time.Time `json:"scraped_at"`
}

// Snippet returns the first n characters of the post content.
func (p *Post) Snippet(n int) string {
	if len(p.Content) <= n {
		return p.Content
	}
	return p.Content[:n]
}

// ExtractedPost is a post annotated with instrument symbols, event types
// and the exclusivity weight of its platform.
type ExtractedPost struct {
	Post
	Symbols    []string `json:"symbols"`
	EventTypes []string `json:"event_types"`
	Weight     float64  `json:"weight"`
}

// HasSymbol reports whether the post mentions the given symbol.
func (e *ExtractedPost) HasSymbol(symbol string) bool {
	for _, s := range e.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}
