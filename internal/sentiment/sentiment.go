// Package sentiment scores post text with a lexicon + phrase + emoji
// heuristic. This is triage scoring, not general NLP: the lexicon is
// domain vocabulary injected as immutable configuration so tests can
// substitute small fixed vocabularies.
package sentiment

import (
	"strings"

	"github.com/jonathanvineet/x-scrapper/internal/model"
)

// Label thresholds are fixed, not tunable per call, so report
// comparisons stay stable over time.
const (
	positiveThreshold = 0.15
	negativeThreshold = -0.15
	emojiWeight       = 0.05
)

// Lexicon is the immutable vocabulary a Scorer matches against.
type Lexicon struct {
	PositiveWords   map[string]bool
	NegativeWords   map[string]bool
	PositivePhrases []string
	NegativePhrases []string
	BullishEmoji    []string
	BearishEmoji    []string
}

// Scorer assigns a bounded polarity score and a discrete label.
// Score is pure: identical text always yields identical output.
type Scorer struct {
	lexicon Lexicon
}

// NewScorer builds a scorer over the given lexicon.
func NewScorer(lexicon Lexicon) *Scorer {
	return &Scorer{lexicon: lexicon}
}

// Score analyzes text and returns polarity in [-1, 1] plus its label.
//
// Word matching collapses duplicates (a repeated slogan counts once);
// phrase matching is substring presence against the lowercased full
// text and likewise counts each phrase at most once. Emoji counts are
// raw occurrences in the original text, weighted ±0.05 each.
func (s *Scorer) Score(text string) model.Sentiment {
	lower := strings.ToLower(text)
	words := make(map[string]bool)
	for _, w := range strings.Fields(lower) {
		words[w] = true
	}

	positiveWords, negativeWords := 0, 0
	for w := range words {
		if s.lexicon.PositiveWords[w] {
			positiveWords++
		}
		if s.lexicon.NegativeWords[w] {
			negativeWords++
		}
	}

	positivePhrases, negativePhrases := 0, 0
	for _, phrase := range s.lexicon.PositivePhrases {
		if strings.Contains(lower, phrase) {
			positivePhrases++
		}
	}
	for _, phrase := range s.lexicon.NegativePhrases {
		if strings.Contains(lower, phrase) {
			negativePhrases++
		}
	}

	totalSignals := positiveWords + negativeWords + positivePhrases + negativePhrases
	polarity := 0.0
	if totalSignals > 0 {
		polarity = float64((positiveWords+positivePhrases)-(negativeWords+negativePhrases)) / float64(totalSignals)
	}

	bullish, bearish := 0, 0
	for _, e := range s.lexicon.BullishEmoji {
		bullish += strings.Count(text, e)
	}
	for _, e := range s.lexicon.BearishEmoji {
		bearish += strings.Count(text, e)
	}
	polarity += float64(bullish-bearish) * emojiWeight

	if polarity > 1 {
		polarity = 1
	} else if polarity < -1 {
		polarity = -1
	}

	return model.Sentiment{Polarity: polarity, Label: LabelFor(polarity)}
}

// LabelFor maps a polarity to its discrete label. Boundary values
// exactly at the thresholds are neutral.
func LabelFor(polarity float64) model.SentimentLabel {
	switch {
	case polarity > positiveThreshold:
		return model.SentimentPositive
	case polarity < negativeThreshold:
		return model.SentimentNegative
	default:
		return model.SentimentNeutral
	}
}
