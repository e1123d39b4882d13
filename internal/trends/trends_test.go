package trends

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonathanvineet/x-scrapper/internal/logging"
	"github.com/jonathanvineet/x-scrapper/internal/model"
	"github.com/jonathanvineet/x-scrapper/internal/store"
)

func quietLogger() logging.Logger {
	logger := logging.NewLogger()
	logger.SetOutput(io.Discard)
	return logger
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedPost(t *testing.T, s *store.Store, post model.Post) {
	t.Helper()
	if err := s.Upsert(context.Background(), post); err != nil {
		t.Fatalf("seed post %s: %v", post.ID, err)
	}
}

func post(id, username, text string, likes, retweets int, polarity float64, age time.Duration) model.Post {
	label := model.SentimentNeutral
	if polarity > 0.15 {
		label = model.SentimentPositive
	} else if polarity < -0.15 {
		label = model.SentimentNegative
	}
	createdAt := time.Now().UTC().Add(-age).Truncate(time.Second)
	return model.Post{
		ID:        id,
		Username:  username,
		Text:      text,
		CreatedAt: createdAt,
		ScrapedAt: createdAt,
		Metrics:   model.Metrics{Likes: likes, Retweets: retweets},
		Sentiment: model.Sentiment{Polarity: polarity, Label: label},
		Source:    model.SourceAPI,
	}
}

func newTestAggregator(s *store.Store) *Aggregator {
	return NewAggregator(AggregatorConfig{
		Store:              s,
		TrackedKeywords:    map[string][]string{"bitcoin": {"bitcoin", "btc"}},
		HighEngagement:     1000,
		SentimentThreshold: 0.5,
		Logger:             quietLogger(),
	})
}

func TestBuildReportSummary(t *testing.T) {
	s := testStore(t)
	seedPost(t, s, post("1", "whale_alert", "bitcoin moving", 100, 50, 0.3, time.Hour))
	seedPost(t, s, post("2", "trader", "quiet day", 10, 5, 0, 2*time.Hour))
	seedPost(t, s, post("3", "whale_alert", "old news", 999, 0, 0, 30*time.Hour))

	report, err := newTestAggregator(s).BuildReport(context.Background(), 24)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if report.WindowHours != 24 {
		t.Errorf("window hours = %d", report.WindowHours)
	}
	if report.Summary.TotalPosts != 2 {
		t.Errorf("total posts = %d, want 2 (30h-old post excluded)", report.Summary.TotalPosts)
	}
	if report.Summary.UniqueAccounts != 2 {
		t.Errorf("unique accounts = %d, want 2", report.Summary.UniqueAccounts)
	}
	if report.Summary.TotalEngagement != 165 {
		t.Errorf("total engagement = %d, want 165", report.Summary.TotalEngagement)
	}
	if report.Sentiment[model.SentimentPositive] != 1 || report.Sentiment[model.SentimentNeutral] != 1 {
		t.Errorf("sentiment breakdown = %v", report.Sentiment)
	}
	if report.GeneratedAt.IsZero() {
		t.Error("generated_at not set")
	}
}

func TestBuildReportTopPostsWeighting(t *testing.T) {
	s := testStore(t)
	// Retweets count double, so 100 likes < 60 retweets.
	seedPost(t, s, post("likes", "a", "likes heavy", 100, 0, 0, time.Hour))
	seedPost(t, s, post("retweets", "b", "retweet heavy", 0, 60, 0, time.Hour))

	report, err := newTestAggregator(s).BuildReport(context.Background(), 24)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.TopPosts) != 2 {
		t.Fatalf("expected 2 top posts, got %d", len(report.TopPosts))
	}
	if report.TopPosts[0].ID != "retweets" {
		t.Errorf("retweet-heavy post should rank first, got %s", report.TopPosts[0].ID)
	}
}

func TestBuildReportAlerts(t *testing.T) {
	s := testStore(t)
	seedPost(t, s, post("viral", "whale_alert", "huge move", 900, 200, 0, time.Hour))
	seedPost(t, s, post("euphoric", "trader", "up only", 10, 0, 0.8, time.Hour))
	seedPost(t, s, post("panicking", "doomer", "down bad", 10, 0, -0.9, time.Hour))
	seedPost(t, s, post("calm", "observer", "sideways", 10, 0, 0.1, time.Hour))

	report, err := newTestAggregator(s).BuildReport(context.Background(), 24)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}

	byType := make(map[string]Alert)
	for _, alert := range report.Alerts {
		byType[alert.Type] = alert
	}

	high, ok := byType["high_engagement"]
	if !ok {
		t.Fatal("expected a high_engagement alert")
	}
	if high.Count != 1 || len(high.Examples) != 1 || high.Examples[0] != "viral" {
		t.Errorf("high_engagement alert wrong: %+v", high)
	}

	if pos, ok := byType["positive_sentiment_spike"]; !ok || pos.Count != 1 {
		t.Errorf("positive spike alert wrong: %+v", byType["positive_sentiment_spike"])
	}
	if neg, ok := byType["negative_sentiment_spike"]; !ok || neg.Count != 1 {
		t.Errorf("negative spike alert wrong: %+v", byType["negative_sentiment_spike"])
	}
}

func TestBuildReportAlertExamplesCapped(t *testing.T) {
	s := testStore(t)
	for i := 0; i < 8; i++ {
		seedPost(t, s, post(fmt.Sprintf("viral-%d", i), "whale_alert", "huge", 2000, 0, 0, time.Hour))
	}
	report, err := newTestAggregator(s).BuildReport(context.Background(), 24)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	for _, alert := range report.Alerts {
		if alert.Type != "high_engagement" {
			continue
		}
		if alert.Count != 8 {
			t.Errorf("count = %d, want 8", alert.Count)
		}
		if len(alert.Examples) != 5 {
			t.Errorf("examples should cap at 5, got %d", len(alert.Examples))
		}
		return
	}
	t.Fatal("high_engagement alert missing")
}

func TestBuildReportNoAlertsWhenQuiet(t *testing.T) {
	s := testStore(t)
	seedPost(t, s, post("1", "observer", "nothing happening", 1, 0, 0, time.Hour))

	report, err := newTestAggregator(s).BuildReport(context.Background(), 24)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Alerts) != 0 {
		t.Fatalf("expected no alerts, got %+v", report.Alerts)
	}
}

func TestBuildReportKeywordMentions(t *testing.T) {
	s := testStore(t)
	seedPost(t, s, post("1", "a", "bitcoin and btc in one post", 1, 0, 0.4, time.Hour))
	seedPost(t, s, post("2", "b", "BTC going up", 1, 0, 0.6, time.Hour))
	seedPost(t, s, post("3", "c", "nothing relevant", 1, 0, -0.5, time.Hour))

	report, err := newTestAggregator(s).BuildReport(context.Background(), 24)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	stat, ok := report.KeywordMentions["bitcoin"]
	if !ok {
		t.Fatal("bitcoin category missing")
	}
	// Post 1 matches both keywords but counts once per category.
	if stat.Mentions != 2 {
		t.Errorf("mentions = %d, want 2", stat.Mentions)
	}
	if stat.AvgSentiment != 0.5 {
		t.Errorf("avg sentiment = %v, want 0.5", stat.AvgSentiment)
	}
}

func TestBuildReportEmptyWindow(t *testing.T) {
	s := testStore(t)
	report, err := newTestAggregator(s).BuildReport(context.Background(), 24)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if report.Summary.TotalPosts != 0 {
		t.Errorf("total posts = %d", report.Summary.TotalPosts)
	}
	if len(report.Alerts) != 0 {
		t.Errorf("alerts = %+v", report.Alerts)
	}
	stat := report.KeywordMentions["bitcoin"]
	if stat.Mentions != 0 || stat.AvgSentiment != 0 {
		t.Errorf("keyword stat should be zero-valued: %+v", stat)
	}
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	report := Report{
		GeneratedAt: time.Now().UTC(),
		WindowHours: 24,
		Summary:     Summary{TotalPosts: 3},
		Sentiment:   map[model.SentimentLabel]int{model.SentimentNeutral: 3},
	}
	path := ReportFilename(filepath.Join(dir, "reports"), report.GeneratedAt)
	if err := WriteReport(report, path); err != nil {
		t.Fatalf("write report: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var decoded Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if decoded.Summary.TotalPosts != 3 || decoded.WindowHours != 24 {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}

func TestReportFilename(t *testing.T) {
	at := time.Date(2024, 3, 1, 15, 4, 5, 0, time.UTC)
	got := ReportFilename("exports", at)
	want := filepath.Join("exports", "intelligence_report_20240301_150405.json")
	if got != want {
		t.Fatalf("filename = %q, want %q", got, want)
	}
}
