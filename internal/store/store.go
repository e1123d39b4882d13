// Package store provides durable keyed storage of posts with upsert
// semantics, filtered retrieval, and windowed aggregation.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jonathanvineet/x-scrapper/internal/model"
)

// timeLayout keeps stored timestamps lexicographically ordered so string
// comparison in SQL matches chronological comparison.
const timeLayout = "2006-01-02T15:04:05Z"

// Store owns one sqlite database. The connection is exclusively owned by
// a single orchestrator instance; no concurrent external writers.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at dbPath.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing connection. Used by tests.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) init() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Upsert inserts or overwrites a post by id. Last writer wins on every
// field except scraped_at: the first collection time is kept so we know
// when a post was first observed.
func (s *Store) Upsert(ctx context.Context, post model.Post) error {
	if s == nil || s.db == nil {
		return errors.New("store unavailable")
	}
	hashtags, err := encodeList(post.Hashtags)
	if err != nil {
		return fmt.Errorf("encode hashtags: %w", err)
	}
	mentions, err := encodeList(post.Mentions)
	if err != nil {
		return fmt.Errorf("encode mentions: %w", err)
	}
	urls, err := encodeList(post.URLs)
	if err != nil {
		return fmt.Errorf("encode urls: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO posts (
			id, username, display_name, text, created_at, scraped_at,
			likes, retweets, replies, views, is_verified,
			hashtags, mentions, urls,
			sentiment_score, sentiment_label, source
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			display_name = excluded.display_name,
			text = excluded.text,
			created_at = excluded.created_at,
			likes = excluded.likes,
			retweets = excluded.retweets,
			replies = excluded.replies,
			views = excluded.views,
			is_verified = excluded.is_verified,
			hashtags = excluded.hashtags,
			mentions = excluded.mentions,
			urls = excluded.urls,
			sentiment_score = excluded.sentiment_score,
			sentiment_label = excluded.sentiment_label,
			source = excluded.source
	`,
		post.ID,
		post.Username,
		post.DisplayName,
		post.Text,
		post.CreatedAt.UTC().Format(timeLayout),
		post.ScrapedAt.UTC().Format(timeLayout),
		post.Metrics.Likes,
		post.Metrics.Retweets,
		post.Metrics.Replies,
		post.Metrics.Views,
		post.IsVerified,
		hashtags,
		mentions,
		urls,
		post.Sentiment.Polarity,
		string(post.Sentiment.Label),
		string(post.Source),
	)
	if err != nil {
		return fmt.Errorf("upsert post %s: %w", post.ID, err)
	}
	return nil
}

// Filters narrows Query results. Zero values mean "no constraint".
type Filters struct {
	Username      string
	Since         time.Time
	Sentiment     model.SentimentLabel
	MinEngagement int
}

// Query returns posts matching the filters, newest first by created_at.
func (s *Store) Query(ctx context.Context, filters Filters, limit int) ([]model.Post, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store unavailable")
	}
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, username, display_name, text, created_at, scraped_at,
			likes, retweets, replies, views, is_verified,
			hashtags, mentions, urls,
			sentiment_score, sentiment_label, source
		FROM posts WHERE 1=1`
	var args []any

	if filters.Username != "" {
		query += " AND username = ?"
		args = append(args, filters.Username)
	}
	if !filters.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filters.Since.UTC().Format(timeLayout))
	}
	if filters.Sentiment != "" {
		query += " AND sentiment_label = ?"
		args = append(args, string(filters.Sentiment))
	}
	if filters.MinEngagement > 0 {
		query += " AND (likes + retweets) >= ?"
		args = append(args, filters.MinEngagement)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

// HashtagStat aggregates one hashtag over a window.
type HashtagStat struct {
	Tag        string `json:"tag"`
	Mentions   int    `json:"mentions"`
	Engagement int    `json:"engagement"`
}

// AccountStat aggregates one account over a window.
type AccountStat struct {
	Username   string `json:"username"`
	Posts      int    `json:"posts"`
	Engagement int    `json:"engagement"`
}

// Window is the raw aggregation a trend report is built from.
type Window struct {
	TotalPosts int
	Sentiment  map[model.SentimentLabel]int
	Hashtags   []HashtagStat // sorted by engagement descending, stable
	Accounts   []AccountStat // sorted by engagement descending, stable
}

// WindowedAggregate runs a single pass over posts with
// created_at >= now-hours and aggregates hashtag, account, and sentiment
// statistics. Sorting is stable so ties keep scan order and reports stay
// deterministic.
func (s *Store) WindowedAggregate(ctx context.Context, hours int) (Window, error) {
	if s == nil || s.db == nil {
		return Window{}, errors.New("store unavailable")
	}
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour).UTC().Format(timeLayout)

	rows, err := s.db.QueryContext(ctx, `
		SELECT username, likes, retweets, hashtags, sentiment_label
		FROM posts
		WHERE created_at >= ?
		ORDER BY created_at DESC
	`, cutoff)
	if err != nil {
		return Window{}, fmt.Errorf("aggregate window: %w", err)
	}
	defer rows.Close()

	window := Window{Sentiment: make(map[model.SentimentLabel]int)}
	hashtagIdx := make(map[string]int)
	accountIdx := make(map[string]int)

	for rows.Next() {
		var username, hashtagsJSON, label string
		var likes, retweets int
		if err := rows.Scan(&username, &likes, &retweets, &hashtagsJSON, &label); err != nil {
			return Window{}, fmt.Errorf("scan aggregate row: %w", err)
		}
		engagement := likes + retweets
		window.TotalPosts++

		var tags []string
		_ = json.Unmarshal([]byte(hashtagsJSON), &tags)
		for _, tag := range tags {
			i, ok := hashtagIdx[tag]
			if !ok {
				i = len(window.Hashtags)
				hashtagIdx[tag] = i
				window.Hashtags = append(window.Hashtags, HashtagStat{Tag: tag})
			}
			window.Hashtags[i].Mentions++
			window.Hashtags[i].Engagement += engagement
		}

		i, ok := accountIdx[username]
		if !ok {
			i = len(window.Accounts)
			accountIdx[username] = i
			window.Accounts = append(window.Accounts, AccountStat{Username: username})
		}
		window.Accounts[i].Posts++
		window.Accounts[i].Engagement += engagement

		if label == "" {
			label = string(model.SentimentNeutral)
		}
		window.Sentiment[model.SentimentLabel(label)]++
	}
	if err := rows.Err(); err != nil {
		return Window{}, fmt.Errorf("iterate aggregate rows: %w", err)
	}

	sort.SliceStable(window.Hashtags, func(i, j int) bool {
		return window.Hashtags[i].Engagement > window.Hashtags[j].Engagement
	})
	sort.SliceStable(window.Accounts, func(i, j int) bool {
		return window.Accounts[i].Engagement > window.Accounts[j].Engagement
	})
	return window, nil
}

// ExportJSON writes all posts from the last `hours` hours to path as one
// JSON array.
func (s *Store) ExportJSON(ctx context.Context, path string, hours int) (int, error) {
	posts, err := s.Query(ctx, Filters{Since: time.Now().Add(-time.Duration(hours) * time.Hour)}, 10000)
	if err != nil {
		return 0, err
	}
	data, err := json.MarshalIndent(posts, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encode export: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create export dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("write export: %w", err)
	}
	return len(posts), nil
}

type postScanner interface {
	Scan(dest ...any) error
}

func scanPost(sc postScanner) (model.Post, error) {
	var p model.Post
	var createdAt, scrapedAt, hashtags, mentions, urls, label, source string
	if err := sc.Scan(
		&p.ID,
		&p.Username,
		&p.DisplayName,
		&p.Text,
		&createdAt,
		&scrapedAt,
		&p.Metrics.Likes,
		&p.Metrics.Retweets,
		&p.Metrics.Replies,
		&p.Metrics.Views,
		&p.IsVerified,
		&hashtags,
		&mentions,
		&urls,
		&p.Sentiment.Polarity,
		&label,
		&source,
	); err != nil {
		return model.Post{}, fmt.Errorf("scan post: %w", err)
	}
	p.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	p.ScrapedAt, _ = time.Parse(timeLayout, scrapedAt)
	p.Sentiment.Label = model.SentimentLabel(label)
	p.Source = model.Source(source)
	_ = json.Unmarshal([]byte(hashtags), &p.Hashtags)
	_ = json.Unmarshal([]byte(mentions), &p.Mentions)
	_ = json.Unmarshal([]byte(urls), &p.URLs)
	return p, nil
}

func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
