package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/jonathanvineet/x-scrapper/internal/logging"
	"github.com/jonathanvineet/x-scrapper/internal/model"
	"github.com/jonathanvineet/x-scrapper/internal/ratelimit"
)

const (
	// maxPageSize is the per-request cap imposed by the API.
	maxPageSize = 100
	// defaultPageDelay paces pagination independently of the quota
	// limiter, matching the API's per-connection throttling guidance.
	defaultPageDelay = time.Second
)

// APIPage is one page of records plus the continuation token, if any.
type APIPage struct {
	Records   []RawRecord
	NextToken string
}

// APIBackend is the external API collaborator. Credential handling and
// HTTP-level 429 backoff live behind this boundary; the collector only
// adds bucket-level pacing on top.
type APIBackend interface {
	FetchUserPage(ctx context.Context, handle string, maxResults int, nextToken string) (APIPage, error)
	FetchSearchPage(ctx context.Context, query string, maxResults int, nextToken string) (APIPage, error)
}

// APICollector paginates through the official API under a quota limiter.
// Page failures abort collection for the current target only: whatever was
// accumulated is returned and the error is logged, never propagated.
type APICollector struct {
	backend   APIBackend
	limiter   *ratelimit.Limiter
	logger    logging.Logger
	pageDelay time.Duration
}

// APICollectorConfig wires an APICollector.
type APICollectorConfig struct {
	Backend   APIBackend
	Limiter   *ratelimit.Limiter
	Logger    logging.Logger
	PageDelay time.Duration
}

// NewAPICollector builds the API variant.
func NewAPICollector(cfg APICollectorConfig) (*APICollector, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("api backend is required")
	}
	if cfg.Limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	delay := cfg.PageDelay
	if delay <= 0 {
		delay = defaultPageDelay
	}
	return &APICollector{
		backend:   cfg.Backend,
		limiter:   cfg.Limiter,
		logger:    cfg.Logger,
		pageDelay: delay,
	}, nil
}

func (c *APICollector) Source() model.Source { return model.SourceAPI }

func (c *APICollector) Close() {}

// FetchTimeline collects up to maxResults records from an account timeline.
func (c *APICollector) FetchTimeline(ctx context.Context, handle string, maxResults int, keywordFilter []string) (Result, error) {
	records, err := c.paginate(ctx, maxResults, func(ctx context.Context, batch int, token string) (APIPage, error) {
		return c.backend.FetchUserPage(ctx, handle, batch, token)
	})
	if err != nil {
		return Result{Records: records}, err
	}
	if len(keywordFilter) > 0 {
		records = filterByKeywords(records, keywordFilter)
	}
	return Result{Records: records}, nil
}

// FetchSearch collects up to maxResults records matching a query.
func (c *APICollector) FetchSearch(ctx context.Context, query string, maxResults int) (Result, error) {
	records, err := c.paginate(ctx, maxResults, func(ctx context.Context, batch int, token string) (APIPage, error) {
		return c.backend.FetchSearchPage(ctx, query, batch, token)
	})
	return Result{Records: records}, err
}

type pageFetch func(ctx context.Context, batchSize int, nextToken string) (APIPage, error)

func (c *APICollector) paginate(ctx context.Context, maxResults int, fetch pageFetch) ([]RawRecord, error) {
	if maxResults <= 0 {
		return nil, nil
	}
	start := time.Now()
	defer func() {
		fetchDuration.WithLabelValues(string(model.SourceAPI)).Observe(time.Since(start).Seconds())
	}()

	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	var records []RawRecord
	remaining := maxResults
	nextToken := ""

	for remaining > 0 {
		batch := remaining
		if batch > maxPageSize {
			batch = maxPageSize
		}

		page, err := fetch(ctx, batch, nextToken)
		if err != nil {
			apiPagesTotal.WithLabelValues("error").Inc()
			if c.logger != nil {
				c.logger.WithError(err).WithField("collected", len(records)).Warn("API page fetch failed, returning partial result")
			}
			return records, nil
		}
		apiPagesTotal.WithLabelValues("ok").Inc()

		if len(page.Records) == 0 {
			break
		}
		records = append(records, page.Records...)
		recordsCollected.WithLabelValues(string(model.SourceAPI)).Add(float64(len(page.Records)))
		remaining -= len(page.Records)

		if page.NextToken == "" {
			break
		}
		nextToken = page.NextToken

		select {
		case <-ctx.Done():
			return records, ctx.Err()
		case <-time.After(c.pageDelay):
		}
	}

	if len(records) > maxResults {
		records = records[:maxResults]
	}
	return records, nil
}

func filterByKeywords(records []RawRecord, keywords []string) []RawRecord {
	var kept []RawRecord
	for _, r := range records {
		if matchesAnyKeyword(r.Text, keywords) {
			kept = append(kept, r)
		}
	}
	return kept
}

// HTTPBackend talks to the API over plain HTTP with a bearer token.
// Resolved handle-to-user lookups are cached so a paginated timeline
// fetch spends quota on one resolution, not one per page.
type HTTPBackend struct {
	client  *http.Client
	baseURL string
	token   string

	mu    sync.Mutex
	users map[string]apiUser
}

// NewHTTPBackend builds the real API collaborator. baseURL is overridable
// for tests; pass "" for the production endpoint.
func NewHTTPBackend(client *http.Client, baseURL, bearerToken string) *HTTPBackend {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = "https://api.twitter.com/2"
	}
	return &HTTPBackend{
		client:  client,
		baseURL: baseURL,
		token:   bearerToken,
		users:   make(map[string]apiUser),
	}
}

type apiTweet struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	AuthorID      string `json:"author_id"`
	CreatedAt     string `json:"created_at"`
	PublicMetrics struct {
		LikeCount       int `json:"like_count"`
		RetweetCount    int `json:"retweet_count"`
		ReplyCount      int `json:"reply_count"`
		ImpressionCount int `json:"impression_count"`
	} `json:"public_metrics"`
	Entities struct {
		Hashtags []struct {
			Tag string `json:"tag"`
		} `json:"hashtags"`
		Mentions []struct {
			Username string `json:"username"`
		} `json:"mentions"`
		URLs []struct {
			URL         string `json:"url"`
			ExpandedURL string `json:"expanded_url"`
		} `json:"urls"`
	} `json:"entities"`
}

type apiUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Verified bool   `json:"verified"`
}

type apiResponse struct {
	Data     []apiTweet `json:"data"`
	Includes struct {
		Users []apiUser `json:"users"`
	} `json:"includes"`
	Meta struct {
		NextToken string `json:"next_token"`
	} `json:"meta"`
}

// FetchUserPage fetches one timeline page for a handle. The handle is
// resolved to a user ID once and cached (the API keys timelines by ID).
func (b *HTTPBackend) FetchUserPage(ctx context.Context, handle string, maxResults int, nextToken string) (APIPage, error) {
	user, err := b.resolveUser(ctx, handle)
	if err != nil {
		return APIPage{}, err
	}

	params := url.Values{
		"max_results":  {strconv.Itoa(maxResults)},
		"tweet.fields": {"created_at,public_metrics,entities"},
	}
	if nextToken != "" {
		params.Set("pagination_token", nextToken)
	}
	var resp apiResponse
	if err := b.getJSON(ctx, "/users/"+user.ID+"/tweets", params, &resp); err != nil {
		return APIPage{}, fmt.Errorf("user timeline %s: %w", handle, err)
	}
	return b.toPage(resp, handle, user.Name, user.Verified), nil
}

func (b *HTTPBackend) resolveUser(ctx context.Context, handle string) (apiUser, error) {
	b.mu.Lock()
	cached, ok := b.users[handle]
	b.mu.Unlock()
	if ok {
		return cached, nil
	}

	var user struct {
		Data apiUser `json:"data"`
	}
	if err := b.getJSON(ctx, "/users/by/username/"+url.PathEscape(handle), nil, &user); err != nil {
		return apiUser{}, fmt.Errorf("resolve user %s: %w", handle, err)
	}
	if user.Data.ID == "" {
		return apiUser{}, fmt.Errorf("user not found: %s", handle)
	}

	b.mu.Lock()
	b.users[handle] = user.Data
	b.mu.Unlock()
	return user.Data, nil
}

// FetchSearchPage fetches one recent-search page.
func (b *HTTPBackend) FetchSearchPage(ctx context.Context, query string, maxResults int, nextToken string) (APIPage, error) {
	params := url.Values{
		"query":        {query},
		"max_results":  {strconv.Itoa(maxResults)},
		"tweet.fields": {"created_at,public_metrics,entities"},
		"expansions":   {"author_id"},
		"user.fields":  {"username,name,verified"},
	}
	if nextToken != "" {
		params.Set("next_token", nextToken)
	}
	var resp apiResponse
	if err := b.getJSON(ctx, "/tweets/search/recent", params, &resp); err != nil {
		return APIPage{}, fmt.Errorf("search %q: %w", query, err)
	}
	return b.toPage(resp, "", "", false), nil
}

func (b *HTTPBackend) toPage(resp apiResponse, fallbackUsername, fallbackName string, fallbackVerified bool) APIPage {
	users := make(map[string]apiUser, len(resp.Includes.Users))
	for _, u := range resp.Includes.Users {
		users[u.ID] = u
	}

	page := APIPage{NextToken: resp.Meta.NextToken}
	for _, t := range resp.Data {
		username, displayName, verified := fallbackUsername, fallbackName, fallbackVerified
		if u, ok := users[t.AuthorID]; ok {
			username, displayName, verified = u.Username, u.Name, u.Verified
		}

		rec := RawRecord{
			ID:          t.ID,
			Username:    username,
			DisplayName: displayName,
			Text:        t.Text,
			Timestamp:   t.CreatedAt,
			Likes:       strconv.Itoa(t.PublicMetrics.LikeCount),
			Retweets:    strconv.Itoa(t.PublicMetrics.RetweetCount),
			Replies:     strconv.Itoa(t.PublicMetrics.ReplyCount),
			Views:       strconv.Itoa(t.PublicMetrics.ImpressionCount),
			Verified:    verified,
			Source:      model.SourceAPI,
		}
		for _, h := range t.Entities.Hashtags {
			rec.Hashtags = append(rec.Hashtags, h.Tag)
		}
		for _, m := range t.Entities.Mentions {
			rec.Mentions = append(rec.Mentions, m.Username)
		}
		for _, u := range t.Entities.URLs {
			link := u.ExpandedURL
			if link == "" {
				link = u.URL
			}
			rec.URLs = append(rec.URLs, link)
		}
		page.Records = append(page.Records, rec)
	}
	return page
}

func (b *HTTPBackend) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	u := b.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
