// Package trends turns windowed store aggregates into cycle reports:
// top entities, top accounts, sentiment distribution, and rule alerts.
package trends

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jonathanvineet/x-scrapper/internal/logging"
	"github.com/jonathanvineet/x-scrapper/internal/model"
	"github.com/jonathanvineet/x-scrapper/internal/store"
)

const (
	topHashtagCount = 25
	topAccountCount = 20
	topPostCount    = 30
	alertExampleCap = 5
)

// Alert is one rule-based finding over the report window.
type Alert struct {
	Type     string   `json:"type"`
	Count    int      `json:"count"`
	Message  string   `json:"message"`
	Examples []string `json:"examples,omitempty"`
}

// KeywordStat summarizes one tracked-keyword category.
type KeywordStat struct {
	Mentions     int     `json:"mentions"`
	AvgSentiment float64 `json:"avg_sentiment"`
}

// Summary is the headline block of a report.
type Summary struct {
	TotalPosts      int `json:"total_posts"`
	UniqueAccounts  int `json:"unique_accounts"`
	TotalEngagement int `json:"total_engagement"`
}

// Report is the single JSON document produced per collection cycle.
type Report struct {
	GeneratedAt     time.Time                    `json:"generated_at"`
	WindowHours     int                          `json:"window_hours"`
	Summary         Summary                      `json:"summary"`
	Sentiment       map[model.SentimentLabel]int `json:"sentiment_breakdown"`
	TopHashtags     []store.HashtagStat          `json:"top_hashtags"`
	TopAccounts     []store.AccountStat          `json:"top_accounts"`
	TopPosts        []model.Post                 `json:"top_posts_by_engagement"`
	Alerts          []Alert                      `json:"alerts"`
	KeywordMentions map[string]KeywordStat       `json:"keyword_mentions"`
}

// AggregatorConfig wires an Aggregator. Keywords and thresholds are
// immutable configuration so tests can substitute small vocabularies.
type AggregatorConfig struct {
	Store              *store.Store
	TrackedKeywords    map[string][]string
	HighEngagement     int
	SentimentThreshold float64
	Logger             logging.Logger
}

// Aggregator computes rolling-window trend reports from the store.
type Aggregator struct {
	store              *store.Store
	keywords           map[string][]string
	highEngagement     int
	sentimentThreshold float64
	logger             logging.Logger
}

// NewAggregator builds a trend aggregator.
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	high := cfg.HighEngagement
	if high <= 0 {
		high = 10000
	}
	threshold := cfg.SentimentThreshold
	if threshold <= 0 {
		threshold = 0.5
	}
	return &Aggregator{
		store:              cfg.Store,
		keywords:           cfg.TrackedKeywords,
		highEngagement:     high,
		sentimentThreshold: threshold,
		logger:             cfg.Logger,
	}
}

// BuildReport aggregates the last `hours` hours into a Report.
func (a *Aggregator) BuildReport(ctx context.Context, hours int) (Report, error) {
	window, err := a.store.WindowedAggregate(ctx, hours)
	if err != nil {
		return Report{}, fmt.Errorf("windowed aggregate: %w", err)
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	posts, err := a.store.Query(ctx, store.Filters{Since: since}, 10000)
	if err != nil {
		return Report{}, fmt.Errorf("load window posts: %w", err)
	}

	accounts := make(map[string]bool)
	totalEngagement := 0
	for _, p := range posts {
		accounts[p.Username] = true
		totalEngagement += p.Metrics.Engagement()
	}

	report := Report{
		GeneratedAt: time.Now().UTC(),
		WindowHours: hours,
		Summary: Summary{
			TotalPosts:      window.TotalPosts,
			UniqueAccounts:  len(accounts),
			TotalEngagement: totalEngagement,
		},
		Sentiment:       window.Sentiment,
		TopHashtags:     truncHashtags(window.Hashtags, topHashtagCount),
		TopAccounts:     truncAccounts(window.Accounts, topAccountCount),
		TopPosts:        topByWeightedEngagement(posts, topPostCount),
		Alerts:          a.buildAlerts(posts),
		KeywordMentions: a.keywordMentions(posts),
	}
	return report, nil
}

// topByWeightedEngagement ranks posts by likes + 2*retweets, stable so
// equal scores keep query order.
func topByWeightedEngagement(posts []model.Post, n int) []model.Post {
	ranked := make([]model.Post, len(posts))
	copy(ranked, posts)
	sort.SliceStable(ranked, func(i, j int) bool {
		wi := ranked[i].Metrics.Likes + 2*ranked[i].Metrics.Retweets
		wj := ranked[j].Metrics.Likes + 2*ranked[j].Metrics.Retweets
		return wi > wj
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func (a *Aggregator) buildAlerts(posts []model.Post) []Alert {
	var alerts []Alert

	var highEngagement []string
	for _, p := range posts {
		if p.Metrics.Engagement() > a.highEngagement {
			highEngagement = append(highEngagement, p.ID)
		}
	}
	if len(highEngagement) > 0 {
		examples := highEngagement
		if len(examples) > alertExampleCap {
			examples = examples[:alertExampleCap]
		}
		alerts = append(alerts, Alert{
			Type:     "high_engagement",
			Count:    len(highEngagement),
			Message:  fmt.Sprintf("%d posts with >%d engagement", len(highEngagement), a.highEngagement),
			Examples: examples,
		})
	}

	positive, negative := 0, 0
	for _, p := range posts {
		if p.Sentiment.Polarity > a.sentimentThreshold {
			positive++
		}
		if p.Sentiment.Polarity < -a.sentimentThreshold {
			negative++
		}
	}
	if positive > 0 {
		alerts = append(alerts, Alert{
			Type:    "positive_sentiment_spike",
			Count:   positive,
			Message: fmt.Sprintf("%d strongly positive posts detected", positive),
		})
	}
	if negative > 0 {
		alerts = append(alerts, Alert{
			Type:    "negative_sentiment_spike",
			Count:   negative,
			Message: fmt.Sprintf("%d strongly negative posts detected", negative),
		})
	}
	return alerts
}

// keywordMentions counts, per tracked category, posts mentioning any of
// the category's keywords (a post counts once per category) and averages
// their polarity.
func (a *Aggregator) keywordMentions(posts []model.Post) map[string]KeywordStat {
	stats := make(map[string]KeywordStat, len(a.keywords))
	for category, keywords := range a.keywords {
		mentions := 0
		sum := 0.0
		for _, p := range posts {
			lower := strings.ToLower(p.Text)
			for _, kw := range keywords {
				if strings.Contains(lower, strings.ToLower(kw)) {
					mentions++
					sum += p.Sentiment.Polarity
					break
				}
			}
		}
		stat := KeywordStat{Mentions: mentions}
		if mentions > 0 {
			stat.AvgSentiment = sum / float64(mentions)
		}
		stats[category] = stat
	}
	return stats
}

func truncHashtags(stats []store.HashtagStat, n int) []store.HashtagStat {
	if len(stats) > n {
		return stats[:n]
	}
	return stats
}

func truncAccounts(stats []store.AccountStat, n int) []store.AccountStat {
	if len(stats) > n {
		return stats[:n]
	}
	return stats
}
