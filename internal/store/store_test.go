package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/jonathanvineet/x-scrapper/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func samplePost(id string, createdAt time.Time) model.Post {
	return model.Post{
		ID:        id,
		Username:  "whale_alert",
		Text:      "bitcoin transfer detected #btc",
		CreatedAt: createdAt,
		ScrapedAt: createdAt.Add(time.Minute),
		Metrics:   model.Metrics{Likes: 100, Retweets: 50, Replies: 10},
		Hashtags:  []string{"btc"},
		Sentiment: model.Sentiment{Polarity: 0.5, Label: model.SentimentPositive},
		Source:    model.SourceAPI,
	}
}

func TestUpsertAndQuery(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	if err := s.Upsert(ctx, samplePost("1", now)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	posts, err := s.Query(ctx, Filters{}, 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	got := posts[0]
	if got.ID != "1" || got.Username != "whale_alert" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Metrics.Likes != 100 || got.Metrics.Retweets != 50 {
		t.Errorf("metrics mismatch: %+v", got.Metrics)
	}
	if len(got.Hashtags) != 1 || got.Hashtags[0] != "btc" {
		t.Errorf("hashtags mismatch: %v", got.Hashtags)
	}
	if got.Sentiment.Label != model.SentimentPositive {
		t.Errorf("sentiment label mismatch: %s", got.Sentiment.Label)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, now)
	}
}

func TestUpsertOverwritesButKeepsScrapedAt(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	first := samplePost("1", now)
	first.ScrapedAt = now
	if err := s.Upsert(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := first
	second.Text = "updated text"
	second.Metrics.Likes = 9000
	second.ScrapedAt = now.Add(time.Hour)
	if err := s.Upsert(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	posts, err := s.Query(ctx, Filters{}, 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("upsert must not duplicate rows, got %d", len(posts))
	}
	got := posts[0]
	if got.Text != "updated text" || got.Metrics.Likes != 9000 {
		t.Errorf("later observation should win: %+v", got)
	}
	if !got.ScrapedAt.Equal(now) {
		t.Errorf("scraped_at = %v, want first observation %v", got.ScrapedAt, now)
	}
}

func TestQueryFilters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	a := samplePost("1", now)
	b := samplePost("2", now.Add(-30*time.Hour))
	b.Username = "trader"
	b.Sentiment = model.Sentiment{Polarity: -0.6, Label: model.SentimentNegative}
	b.Metrics = model.Metrics{Likes: 5, Retweets: 1}
	for _, p := range []model.Post{a, b} {
		if err := s.Upsert(ctx, p); err != nil {
			t.Fatalf("upsert %s: %v", p.ID, err)
		}
	}

	t.Run("username", func(t *testing.T) {
		posts, err := s.Query(ctx, Filters{Username: "trader"}, 10)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if len(posts) != 1 || posts[0].ID != "2" {
			t.Fatalf("expected only trader's post, got %+v", posts)
		}
	})

	t.Run("since excludes old posts", func(t *testing.T) {
		posts, err := s.Query(ctx, Filters{Since: now.Add(-24 * time.Hour)}, 10)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if len(posts) != 1 || posts[0].ID != "1" {
			t.Fatalf("30h-old post should be excluded, got %+v", posts)
		}
	})

	t.Run("sentiment", func(t *testing.T) {
		posts, err := s.Query(ctx, Filters{Sentiment: model.SentimentNegative}, 10)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if len(posts) != 1 || posts[0].ID != "2" {
			t.Fatalf("expected the negative post, got %+v", posts)
		}
	})

	t.Run("min engagement", func(t *testing.T) {
		posts, err := s.Query(ctx, Filters{MinEngagement: 100}, 10)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if len(posts) != 1 || posts[0].ID != "1" {
			t.Fatalf("expected the high-engagement post, got %+v", posts)
		}
	})
}

func TestQueryOrdersNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	for i, offset := range []time.Duration{-2 * time.Hour, 0, -time.Hour} {
		p := samplePost(string(rune('a'+i)), now.Add(offset))
		if err := s.Upsert(ctx, p); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	posts, err := s.Query(ctx, Filters{}, 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(posts))
	}
	for i := 1; i < len(posts); i++ {
		if posts[i].CreatedAt.After(posts[i-1].CreatedAt) {
			t.Fatalf("posts not newest first: %v then %v", posts[i-1].CreatedAt, posts[i].CreatedAt)
		}
	}
}

func TestWindowedAggregate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	inWindow := samplePost("1", now.Add(-time.Hour))
	inWindow.Hashtags = []string{"btc", "eth"}
	second := samplePost("2", now.Add(-2*time.Hour))
	second.Username = "trader"
	second.Hashtags = []string{"btc"}
	second.Metrics = model.Metrics{Likes: 1000, Retweets: 500}
	second.Sentiment = model.Sentiment{Polarity: -0.6, Label: model.SentimentNegative}
	outOfWindow := samplePost("3", now.Add(-30*time.Hour))
	for _, p := range []model.Post{inWindow, second, outOfWindow} {
		if err := s.Upsert(ctx, p); err != nil {
			t.Fatalf("upsert %s: %v", p.ID, err)
		}
	}

	window, err := s.WindowedAggregate(ctx, 24)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if window.TotalPosts != 2 {
		t.Fatalf("expected 2 posts in window, got %d", window.TotalPosts)
	}
	if window.Sentiment[model.SentimentPositive] != 1 || window.Sentiment[model.SentimentNegative] != 1 {
		t.Errorf("sentiment breakdown wrong: %v", window.Sentiment)
	}
	if len(window.Hashtags) != 2 {
		t.Fatalf("expected 2 hashtags, got %v", window.Hashtags)
	}
	if window.Hashtags[0].Tag != "btc" {
		t.Errorf("btc should rank first by engagement, got %s", window.Hashtags[0].Tag)
	}
	if window.Hashtags[0].Mentions != 2 || window.Hashtags[0].Engagement != 1650 {
		t.Errorf("btc stats wrong: %+v", window.Hashtags[0])
	}
	if len(window.Accounts) != 2 || window.Accounts[0].Username != "trader" {
		t.Errorf("trader should rank first by engagement, got %v", window.Accounts)
	}
}

func TestExportJSON(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	if err := s.Upsert(ctx, samplePost("1", now)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out", "export.json")
	n, err := s.ExportJSON(ctx, path, 24)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 exported post, got %d", n)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var posts []model.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != "1" {
		t.Fatalf("export content wrong: %+v", posts)
	}
}

func TestNilStoreGuards(t *testing.T) {
	var s *Store
	ctx := context.Background()
	if err := s.Upsert(ctx, model.Post{ID: "1"}); err == nil {
		t.Error("nil store upsert should fail")
	}
	if _, err := s.Query(ctx, Filters{}, 10); err == nil {
		t.Error("nil store query should fail")
	}
	if _, err := s.WindowedAggregate(ctx, 24); err == nil {
		t.Error("nil store aggregate should fail")
	}
	if err := s.Close(); err != nil {
		t.Errorf("nil store close should be a no-op, got %v", err)
	}
}

func TestUpsertPropagatesDatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO posts").WillReturnError(errors.New("disk full"))

	s := NewWithDB(db)
	if err := s.Upsert(context.Background(), samplePost("1", time.Now())); err == nil {
		t.Fatal("expected an error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestQueryPropagatesDatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM posts").WillReturnError(errors.New("io error"))

	s := NewWithDB(db)
	if _, err := s.Query(context.Background(), Filters{}, 10); err == nil {
		t.Fatal("expected an error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
