package config

import (
	"strings"
	"time"
)

// Config stores environment configuration for the scraper.
type Config struct {
	Port                string
	DatabasePath        string
	BearerToken         string
	UseAPI              bool
	UseBrowser          bool
	Headless            bool
	MirrorURLs          []string
	MaxTweetsPerAccount int
	MaxTweetsPerKeyword int
	MonitoringInterval  time.Duration
	ScrollPause         time.Duration
	InterPageDelay      time.Duration
	RateLimitCalls      int
	RateLimitWindow     time.Duration
	HighEngagement      int
	SentimentAlert      float64
	ReportWindowHours   int
	ExportDirectory     string
	AccountCategories   []string
	SearchKeywords      []string
}

// LoadConfig loads the scraper configuration from environment variables.
func LoadConfig() Config {
	return Config{
		Port:                GetEnv("PORT", "18030"),
		DatabasePath:        GetEnv("DATABASE_PATH", "crypto_intelligence.db"),
		BearerToken:         GetEnv("X_BEARER_TOKEN", ""),
		UseAPI:              GetEnvBool("USE_API", false),
		UseBrowser:          GetEnvBool("USE_BROWSER", true),
		Headless:            GetEnvBool("HEADLESS", true),
		MirrorURLs:          parseList(GetEnv("MIRROR_URLS", strings.Join(DefaultMirrors, ","))),
		MaxTweetsPerAccount: GetEnvInt("MAX_TWEETS_PER_ACCOUNT", 50),
		MaxTweetsPerKeyword: GetEnvInt("MAX_TWEETS_PER_KEYWORD", 100),
		MonitoringInterval:  parseDuration(GetEnv("MONITORING_INTERVAL", "5m"), 5*time.Minute),
		ScrollPause:         parseDuration(GetEnv("SCROLL_PAUSE", "2s"), 2*time.Second),
		InterPageDelay:      parseDuration(GetEnv("INTER_PAGE_DELAY", "1s"), time.Second),
		RateLimitCalls:      GetEnvInt("RATE_LIMIT_CALLS", 450),
		RateLimitWindow:     parseDuration(GetEnv("RATE_LIMIT_WINDOW", "15m"), 15*time.Minute),
		HighEngagement:      GetEnvInt("HIGH_ENGAGEMENT_THRESHOLD", 10000),
		SentimentAlert:      GetEnvFloat("SENTIMENT_THRESHOLD", 0.5),
		ReportWindowHours:   GetEnvInt("REPORT_WINDOW_HOURS", 24),
		ExportDirectory:     GetEnv("EXPORT_DIRECTORY", "./exports"),
		AccountCategories:   parseList(GetEnv("ACCOUNT_CATEGORIES", "")),
		SearchKeywords:      parseList(GetEnv("SEARCH_KEYWORDS", "bitcoin,ethereum,crypto")),
	}
}

// DefaultMirrors lists the mirror front-ends tried in priority order when
// the browser collector is active.
var DefaultMirrors = []string{
	"https://nitter.net",
	"https://nitter.privacydev.net",
	"https://nitter.poast.org",
}

func parseList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
