// Package dedup filters repeated identifiers within one collection run.
// Cross-run duplicates are the store's concern via upsert.
package dedup

import "github.com/jonathanvineet/x-scrapper/internal/model"

// Set tracks identifiers seen during a single logical collection run.
// The zero value is not usable; create with New.
type Set struct {
	seen map[string]bool
}

// New creates an empty dedup set for one run.
func New() *Set {
	return &Set{seen: make(map[string]bool)}
}

// Seen reports whether id was already recorded.
func (s *Set) Seen(id string) bool {
	return s.seen[id]
}

// Record marks id as seen.
func (s *Set) Record(id string) {
	s.seen[id] = true
}

// Filter returns the posts whose IDs have not been seen before, in input
// order, recording each kept ID. First occurrence wins.
func (s *Set) Filter(posts []model.Post) []model.Post {
	var kept []model.Post
	for _, p := range posts {
		if s.seen[p.ID] {
			continue
		}
		s.seen[p.ID] = true
		kept = append(kept, p)
	}
	return kept
}

// Len reports how many unique identifiers were recorded.
func (s *Set) Len() int {
	return len(s.seen)
}
