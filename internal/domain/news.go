package domain

import "time"

// NewsArticle is a provider article. ID is stable across fetches.
type NewsArticle struct {
	ID          string
	Headline    string
	Summary     string
	Source      string
	URL         string
	Image       string
	PublishedAt time.Time
}

// Text is the input handed to sentiment scoring.
func (a NewsArticle) Text() string {
	if a.Summary == "" {
		return a.Headline
	}
	return a.Headline + " " + a.Summary
}

// ScoredArticle is an article with its sentiment attached. It is never re-scored.
type ScoredArticle struct {
	NewsArticle
	Sentiment SentimentScore
}

// SymbolMatch is one symbol lookup result.
type SymbolMatch struct {
	Symbol      Symbol `json:"symbol"`
	Description string `json:"description"`
}
