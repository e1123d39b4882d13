// Package normalize maps heterogeneous raw records (API JSON, DOM-scraped
// text) into the canonical Post shape.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/jonathanvineet/x-scrapper/internal/collector"
	"github.com/jonathanvineet/x-scrapper/internal/model"
)

var (
	hashtagRe = regexp.MustCompile(`#(\w+)`)
	mentionRe = regexp.MustCompile(`@(\w+)`)
	urlRe     = regexp.MustCompile(`https?://[^\s]+`)

	metricKeepRe = regexp.MustCompile(`[^\d.KMB]`)
)

// Record builds a Post from one raw record. scrapedAt is the collection
// time; it doubles as the CreatedAt fallback when the source timestamp is
// absent or unparseable (the post is then flagged ApproxTime).
func Record(rec collector.RawRecord, scrapedAt time.Time) model.Post {
	createdAt, approx := ParseTimestamp(rec.Timestamp, scrapedAt)

	post := model.Post{
		ID:          rec.ID,
		Username:    rec.Username,
		DisplayName: rec.DisplayName,
		Text:        rec.Text,
		CreatedAt:   createdAt,
		ScrapedAt:   scrapedAt,
		Metrics: model.Metrics{
			Likes:    ParseMetric(rec.Likes),
			Retweets: ParseMetric(rec.Retweets),
			Replies:  ParseMetric(rec.Replies),
			Views:    ParseMetric(rec.Views),
		},
		IsVerified: rec.Verified,
		Source:     rec.Source,
		ApproxTime: approx,
	}

	if rec.Hashtags != nil || rec.Mentions != nil || rec.URLs != nil {
		post.Hashtags = rec.Hashtags
		post.Mentions = rec.Mentions
		post.URLs = rec.URLs
	} else {
		post.Hashtags, post.Mentions, post.URLs = ExtractEntities(rec.Text)
	}

	if post.ID == "" {
		post.ID = FallbackID(post.Username, post.Text, rec.Timestamp)
	}
	return post
}

// ParseMetric parses a formatted engagement count ("1.2K", "3M", "1,024",
// "45 retweets") into a non-negative integer. Unparseable or empty input
// yields 0, never an error.
func ParseMetric(raw string) int {
	cleaned := metricKeepRe.ReplaceAllString(strings.ToUpper(raw), "")
	if cleaned == "" {
		return 0
	}

	multiplier := 1.0
	switch {
	case strings.Contains(cleaned, "K"):
		multiplier = 1e3
		cleaned = strings.ReplaceAll(cleaned, "K", "")
	case strings.Contains(cleaned, "M"):
		multiplier = 1e6
		cleaned = strings.ReplaceAll(cleaned, "M", "")
	case strings.Contains(cleaned, "B"):
		multiplier = 1e9
		cleaned = strings.ReplaceAll(cleaned, "B", "")
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || value < 0 {
		return 0
	}
	return int(math.Round(value * multiplier))
}

// ExtractEntities derives hashtags, mentions, and bare URLs from post
// text, in order of appearance. Duplicates are kept: a tag mentioned
// twice appears twice.
func ExtractEntities(text string) (hashtags, mentions, urls []string) {
	for _, m := range hashtagRe.FindAllStringSubmatch(text, -1) {
		hashtags = append(hashtags, m[1])
	}
	for _, m := range mentionRe.FindAllStringSubmatch(text, -1) {
		mentions = append(mentions, m[1])
	}
	urls = urlRe.FindAllString(text, -1)
	return hashtags, mentions, urls
}

// ParseTimestamp parses a source timestamp that may be ISO-8601, a
// human-readable mirror format ("Sep 27, 2023 · 2:13 PM UTC"), or empty.
// On failure it falls back to scrapedAt and reports approx=true.
func ParseTimestamp(raw string, scrapedAt time.Time) (ts time.Time, approx bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return scrapedAt, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, false
	}
	// Mirrors separate date and time with a middle dot.
	cleaned := strings.Join(strings.Fields(strings.ReplaceAll(raw, "·", " ")), " ")
	if t, err := time.Parse("Jan 2, 2006 3:04 PM MST", cleaned); err == nil {
		return t, false
	}
	if t, err := dateparse.ParseAny(cleaned); err == nil {
		return t, false
	}
	return scrapedAt, true
}

// FallbackID builds a deterministic identifier for sources that do not
// assign one, approximating identity by (username, text, timestamp).
func FallbackID(username, text, rawTimestamp string) string {
	sum := sha256.Sum256([]byte(username + "|" + text + "|" + rawTimestamp))
	return username + "_" + hex.EncodeToString(sum[:8])
}
