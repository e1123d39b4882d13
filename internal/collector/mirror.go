package collector

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jonathanvineet/x-scrapper/internal/logging"
	"github.com/jonathanvineet/x-scrapper/internal/model"
)

// Mirror front-end selectors. These are the volatile presentation details;
// everything consuming them goes through the Session/Element capabilities
// so a selector change stays contained here.
const (
	selPostItem = ".timeline-item"
	selUsername = ".username"
	selContent  = ".tweet-content"
	selPostDate = ".tweet-date a"
	selStats    = ".icon-container"
)

const (
	// rateLimitBanner is the page-body marker mirrors show when they are
	// being throttled upstream.
	rateLimitBanner = "rate limited"
	// stallThreshold is how many consecutive scroll iterations may yield
	// no new unique records and no height growth before giving up.
	stallThreshold = 5
	// defaultSettle is the post-navigation wait before extraction.
	defaultSettle = 3 * time.Second
	// defaultScrollPause is the wait after each scroll-to-bottom.
	defaultScrollPause = 2 * time.Second
)

// Element is one rendered post element. Lookups must tolerate missing
// sub-elements: a false ok means the field is absent, never an error.
type Element interface {
	// Text returns the text content of the first descendant matching
	// the selector.
	Text(selector string) (string, bool)
	// Attr returns an attribute of the first descendant matching the
	// selector.
	Attr(selector, attr string) (string, bool)
	// TextAll returns the text of every descendant matching the
	// selector, in document order.
	TextAll(selector string) []string
}

// Session is the browser-automation collaborator: one remote-controlled
// page, exclusively owned, released via Close on every exit path.
type Session interface {
	Open(ctx context.Context, pageURL string) error
	// PageText returns the visible body text, used for rate-limit
	// banner detection.
	PageText(ctx context.Context) (string, error)
	// FindAll returns the rendered post elements currently in the DOM.
	FindAll(ctx context.Context, selector string) ([]Element, error)
	ScrollToBottom(ctx context.Context) error
	PageHeight(ctx context.Context) (float64, error)
	Close()
}

// mirrorState drives the per-collection state machine. Keeping it an
// explicit enum loop makes stall detection and mirror advancement
// testable in isolation.
type mirrorState int

const (
	stateTryMirror mirrorState = iota
	stateExtractPage
	stateScrollForMore
	stateRateLimited
	stateExhausted
	stateDone
)

// MirrorCollector drives a browser session across a ranked list of mirror
// front-ends, extracting rendered post elements with scroll-based
// incremental loading and failing over when a mirror reports rate
// limiting. A mirror that worked stays selected for subsequent targets in
// the same run until it too rate-limits.
type MirrorCollector struct {
	session     Session
	mirrors     []string
	logger      logging.Logger
	settle      time.Duration
	scrollPause time.Duration

	// sticky is the index of the last mirror that yielded results;
	// collection for the next target starts there.
	sticky int
}

// MirrorCollectorConfig wires a MirrorCollector.
type MirrorCollectorConfig struct {
	Session     Session
	Mirrors     []string
	Logger      logging.Logger
	Settle      time.Duration
	ScrollPause time.Duration
}

// NewMirrorCollector builds the browser variant.
func NewMirrorCollector(cfg MirrorCollectorConfig) (*MirrorCollector, error) {
	if cfg.Session == nil {
		return nil, fmt.Errorf("browser session is required")
	}
	if len(cfg.Mirrors) == 0 {
		return nil, fmt.Errorf("at least one mirror url is required")
	}
	settle := cfg.Settle
	if settle <= 0 {
		settle = defaultSettle
	}
	pause := cfg.ScrollPause
	if pause <= 0 {
		pause = defaultScrollPause
	}
	return &MirrorCollector{
		session:     cfg.Session,
		mirrors:     cfg.Mirrors,
		logger:      cfg.Logger,
		settle:      settle,
		scrollPause: pause,
	}, nil
}

func (c *MirrorCollector) Source() model.Source { return model.SourceBrowser }

// Close releases the browser session.
func (c *MirrorCollector) Close() {
	c.session.Close()
}

// FetchTimeline collects an account page, optionally narrowed by keyword.
func (c *MirrorCollector) FetchTimeline(ctx context.Context, handle string, maxResults int, keywordFilter []string) (Result, error) {
	return c.collect(ctx, func(base string) string {
		return strings.TrimRight(base, "/") + "/" + url.PathEscape(handle)
	}, handle, maxResults, keywordFilter)
}

// FetchSearch collects a mirror search results page.
func (c *MirrorCollector) FetchSearch(ctx context.Context, query string, maxResults int) (Result, error) {
	return c.collect(ctx, func(base string) string {
		return strings.TrimRight(base, "/") + "/search?q=" + url.QueryEscape(query)
	}, "", maxResults, nil)
}

func (c *MirrorCollector) collect(ctx context.Context, mirrorURL func(base string) string, defaultUsername string, maxResults int, keywordFilter []string) (Result, error) {
	start := time.Now()
	defer func() {
		fetchDuration.WithLabelValues(string(model.SourceBrowser)).Observe(time.Since(start).Seconds())
	}()

	var records []RawRecord
	seen := make(map[string]bool)

	mirror := c.sticky
	stalls := 0
	lastHeight := 0.0
	newUniques := 0

	state := stateTryMirror
	for {
		if ctx.Err() != nil {
			return Result{Records: records}, ctx.Err()
		}

		switch state {
		case stateTryMirror:
			if mirror >= len(c.mirrors) {
				state = stateExhausted
				continue
			}
			target := mirrorURL(c.mirrors[mirror])
			if err := c.session.Open(ctx, target); err != nil {
				if c.logger != nil {
					c.logger.WithError(err).WithField("mirror", c.mirrors[mirror]).Warn("Mirror navigation failed, advancing")
				}
				mirror++
				continue
			}
			c.pause(ctx, c.settle)
			if c.rateLimited(ctx) {
				state = stateRateLimited
				continue
			}
			stalls = 0
			lastHeight = 0
			state = stateExtractPage

		case stateRateLimited:
			mirrorFailovers.Inc()
			if c.logger != nil {
				c.logger.WithField("mirror", c.mirrors[mirror]).Warn("Mirror reports rate limiting, failing over")
			}
			mirror++
			state = stateTryMirror

		case stateExtractPage:
			elements, err := c.session.FindAll(ctx, selPostItem)
			if err != nil {
				if c.logger != nil {
					c.logger.WithError(err).Warn("Post element scan failed, advancing mirror")
				}
				mirror++
				state = stateTryMirror
				continue
			}
			newUniques = 0
			for _, el := range elements {
				rec := extractRecord(el, defaultUsername)
				if rec.Text == "" {
					continue
				}
				key := rec.Username + "|" + rec.Text + "|" + rec.Timestamp
				if seen[key] {
					continue
				}
				seen[key] = true
				newUniques++
				if len(keywordFilter) > 0 && !matchesAnyKeyword(rec.Text, keywordFilter) {
					continue
				}
				records = append(records, rec)
				if len(records) >= maxResults {
					break
				}
			}
			if newUniques > 0 {
				c.sticky = mirror
			}
			recordsCollected.WithLabelValues(string(model.SourceBrowser)).Add(float64(newUniques))
			state = stateScrollForMore

		case stateScrollForMore:
			if len(records) >= maxResults {
				state = stateDone
				continue
			}
			height, _ := c.session.PageHeight(ctx)
			if newUniques == 0 && height == lastHeight {
				stalls++
			} else {
				stalls = 0
			}
			lastHeight = height
			if stalls >= stallThreshold {
				state = stateDone
				continue
			}
			if err := c.session.ScrollToBottom(ctx); err != nil {
				state = stateDone
				continue
			}
			c.pause(ctx, c.scrollPause)
			state = stateExtractPage

		case stateExhausted:
			if c.logger != nil {
				c.logger.WithField("collected", len(records)).Warn("All mirrors exhausted")
			}
			return Result{Records: records, Exhausted: true}, nil

		case stateDone:
			return Result{Records: records}, nil
		}
	}
}

func (c *MirrorCollector) rateLimited(ctx context.Context) bool {
	text, err := c.session.PageText(ctx)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(text), rateLimitBanner)
}

func (c *MirrorCollector) pause(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// extractRecord pulls the fields of one rendered post. Every missing
// sub-element defaults; extraction never aborts a record.
func extractRecord(el Element, defaultUsername string) RawRecord {
	rec := RawRecord{Source: model.SourceBrowser}

	if username, ok := el.Text(selUsername); ok {
		rec.Username = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(username), "@"))
	}
	if rec.Username == "" {
		rec.Username = defaultUsername
	}
	if text, ok := el.Text(selContent); ok {
		rec.Text = strings.TrimSpace(text)
	}
	if ts, ok := el.Attr(selPostDate, "title"); ok {
		rec.Timestamp = ts
	} else if ts, ok := el.Text(selPostDate); ok {
		rec.Timestamp = ts
	}

	// Engagement icons render in reply, retweet, like order.
	stats := el.TextAll(selStats)
	if len(stats) >= 3 {
		rec.Replies = strings.TrimSpace(stats[0])
		rec.Retweets = strings.TrimSpace(stats[1])
		rec.Likes = strings.TrimSpace(stats[2])
	}
	return rec
}

func matchesAnyKeyword(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
