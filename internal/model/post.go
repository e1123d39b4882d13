// Package model holds the canonical post shape shared by collectors,
// the store, and the trend aggregator.
package model

import "time"

// Source identifies which collection path produced a post.
type Source string

const (
	SourceAPI     Source = "api"
	SourceBrowser Source = "browser"
)

// SentimentLabel is the discrete triage bucket derived from polarity.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

// Metrics carries engagement counts. All values are non-negative after
// normalization; failed parses become 0, never negative.
type Metrics struct {
	Likes    int `json:"likes"`
	Retweets int `json:"retweets"`
	Replies  int `json:"replies"`
	Views    int `json:"views"`
}

// Engagement is the combined likes+retweets figure used by filters,
// aggregation, and alerting.
func (m Metrics) Engagement() int {
	return m.Likes + m.Retweets
}

// Sentiment is the heuristic polarity score and its label.
type Sentiment struct {
	Polarity float64        `json:"polarity"`
	Label    SentimentLabel `json:"label"`
}

// Post is the canonical unit produced by the normalizer. CreatedAt is the
// source-reported time; ScrapedAt is when we collected it. The two are
// never conflated.
type Post struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
	ScrapedAt   time.Time `json:"scraped_at"`
	Metrics     Metrics   `json:"metrics"`
	IsVerified  bool      `json:"is_verified"`
	Hashtags    []string  `json:"hashtags"`
	Mentions    []string  `json:"mentions"`
	URLs        []string  `json:"urls"`
	Sentiment   Sentiment `json:"sentiment"`
	Source      Source    `json:"source"`

	// ApproxTime marks posts whose CreatedAt fell back to collection
	// time because the source timestamp would not parse. Not persisted.
	ApproxTime bool `json:"-"`
}

// TargetKind distinguishes account timelines from keyword searches.
type TargetKind string

const (
	TargetAccount TargetKind = "account"
	TargetKeyword TargetKind = "keyword"
)

// Target is one unit of collection work: an account handle or a search
// query. Collectors are symmetric over both kinds.
type Target struct {
	Kind  TargetKind
	Value string
	// KeywordFilter narrows account-timeline collection to posts
	// mentioning any of the given terms. Ignored for keyword targets.
	KeywordFilter []string
}

// AccountTarget builds an account-timeline target.
func AccountTarget(handle string) Target {
	return Target{Kind: TargetAccount, Value: handle}
}

// KeywordTarget builds a search target.
func KeywordTarget(query string) Target {
	return Target{Kind: TargetKeyword, Value: query}
}
