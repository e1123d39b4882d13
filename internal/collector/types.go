// Package collector gathers raw post records from unreliable sources: the
// official rate-limited API and browser-driven mirror front-ends. Both
// variants implement the same Collector contract so the orchestrator never
// knows which one it is driving.
package collector

import (
	"context"

	"github.com/jonathanvineet/x-scrapper/internal/model"
)

// RawRecord is a source-shaped record before normalization. Metric fields
// are kept as strings because mirrors render them formatted ("1.2K"); the
// API variant writes plain decimal strings. Entity lists are only set when
// the source supplies structured entities.
type RawRecord struct {
	ID          string
	Username    string
	DisplayName string
	Text        string
	Timestamp   string
	Likes       string
	Retweets    string
	Replies     string
	Views       string
	Verified    bool
	Hashtags    []string
	Mentions    []string
	URLs        []string
	Source      model.Source
}

// Result is what a collection attempt produced. Records may be partial:
// collectors accumulate what they can and report failures out of band.
// Exhausted is set by the mirror variant when every mirror was tried and
// none worked, as opposed to having simply collected enough.
type Result struct {
	Records   []RawRecord
	Exhausted bool
}

// Collector is the capability shared by the API and browser variants.
// Implementations return whatever they accumulated even on error; a
// non-nil error means the attempt itself could not run to completion,
// never that the whole batch must be discarded.
type Collector interface {
	// FetchTimeline collects up to maxResults records from an account's
	// timeline. keywordFilter, when non-empty, keeps only records whose
	// text mentions at least one term.
	FetchTimeline(ctx context.Context, handle string, maxResults int, keywordFilter []string) (Result, error)
	// FetchSearch collects up to maxResults records matching a query.
	FetchSearch(ctx context.Context, query string, maxResults int) (Result, error)
	Source() model.Source
	Close()
}
