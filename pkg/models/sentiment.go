package models

// Column names shared across the news stages.
const (
	ColTitle       = "title"
	ColURL         = "url"
	ColPublishedAt = "publishedAt"
	ColSourceName  = "source_name"
	ColFullText    = "full_text"
	ColSentiment   = "sentiment"
	ColDate        = "date"
)

// DailySentiment is the mean compound score of all articles sharing a date.
type DailySentiment struct {
	Date      string  `json:"date"` // YYYY-MM-DD
	Sentiment float64 `json:"sentiment"`
	Articles  int     `json:"articles"`
}
