package sentiment

// DefaultLexicon is the crypto/market vocabulary used in production.
func DefaultLexicon() Lexicon {
	return Lexicon{
		PositiveWords: wordSet(
			"bullish", "moon", "rocket", "pump", "gains", "breakthrough",
			"adoption", "partnership", "launch", "approved", "soaring",
			"surge", "rally", "breakout", "accumulate", "hodl", "gem",
			"alpha", "long", "buy", "accumulation", "institutional",
			"etf", "utility",
		),
		NegativeWords: wordSet(
			"bearish", "dump", "crash", "scam", "rug", "rugpull", "fud",
			"decline", "plunge", "reject", "rejected", "liquidation",
			"short", "hack", "exploit", "vulnerable", "warning",
			"caution", "ponzi", "bubble", "overvalued", "sell", "exit",
			"risk", "fraud",
		),
		PositivePhrases: []string{
			"ath", "breakout", "golden cross", "support", "buy signal",
		},
		NegativePhrases: []string{
			"death cross", "resistance", "sell signal", "breakdown",
		},
		BullishEmoji: []string{"🚀", "📈", "💎", "🐂"},
		BearishEmoji: []string{"📉", "🐻", "💀"},
	}
}

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
