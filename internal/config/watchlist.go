package config

import "sort"

// MonitoredAccounts groups the accounts watched by the continuous monitor
// into categories selectable via ACCOUNT_CATEGORIES.
var MonitoredAccounts = map[string][]string{
	"crypto_whales": {
		"elonmusk", "VitalikButerin", "cz_binance", "brian_armstrong",
		"APompliano", "naval", "balajis", "aantonop", "novogratz",
		"CathieDWood", "RaoulGMI",
	},
	"tech_billionaires": {
		"elonmusk", "BillGates", "jeffbezos", "MarkZuckerberg",
		"sundarpichai", "tim_cook", "satyanadella",
	},
	"crypto_founders": {
		"VitalikButerin", "justinsuntron", "hoskinson_charles",
		"aantonop", "stani_kulechov", "haydenzadams",
	},
	"crypto_media": {
		"CoinDesk", "Cointelegraph", "TheCryptoLark", "bitcoinmagazine",
		"TheBlockPro",
	},
	"defi_protocols": {
		"Uniswap", "AaveAave", "CurveFinance", "MakerDAO",
		"Compound", "synthetix_io", "SushiSwap", "yearn",
	},
	"exchanges": {
		"binance", "coinbase", "krakenfx", "Gemini", "okx",
	},
	"analysts": {
		"DocumentingBTC", "WClementeIII", "woonomic", "glassnode",
		"santimentfeed", "CryptoQuant_com",
	},
}

// TrackedKeywords groups the keyword vocabulary used for search collection
// and report keyword-mention analysis.
var TrackedKeywords = map[string][]string{
	"major_cryptos": {
		"bitcoin", "btc", "$btc", "ethereum", "eth", "$eth",
		"solana", "sol", "cardano", "ada", "xrp", "ripple",
		"dogecoin", "doge", "polygon", "matic", "avalanche", "avax",
		"polkadot", "dot", "chainlink", "link",
	},
	"defi": {
		"defi", "decentralized finance", "yield farming", "liquidity pool",
		"amm", "dex", "lending protocol", "stablecoin", "usdt", "usdc",
		"tvl", "total value locked",
	},
	"nft": {
		"nft", "non-fungible", "opensea", "blur", "pfp",
		"digital collectible", "mint", "floor price",
	},
	"market_sentiment": {
		"bullish", "bearish", "moon", "dump", "pump", "fomo", "fud",
		"hodl", "diamond hands", "paper hands", "rekt",
		"to the moon", "bull run", "bear market", "alt season",
		"btc dominance",
	},
	"technical_analysis": {
		"support level", "resistance", "breakout", "breakdown",
		"bull flag", "bear flag", "golden cross", "death cross",
		"rsi", "macd", "fibonacci",
	},
	"regulation": {
		"sec", "regulatory", "compliance", "etf approval", "bitcoin etf",
		"crypto regulation", "cftc", "cbdc", "lawsuit", "settlement",
	},
	"market_events": {
		"halving", "hard fork", "mainnet launch", "testnet",
		"airdrop", "token unlock", "partnership announcement",
		"acquisition", "listing", "delisting", "hack", "exploit",
	},
	"institutional": {
		"institutional adoption", "blackrock", "fidelity", "goldman sachs",
		"jpmorgan", "wall street", "tradfi", "pension fund",
	},
}

// AccountsForCategories flattens the selected categories into a sorted,
// de-duplicated account list. An empty selection means all categories.
func AccountsForCategories(categories []string) []string {
	if len(categories) == 0 {
		for category := range MonitoredAccounts {
			categories = append(categories, category)
		}
	}
	seen := make(map[string]bool)
	var accounts []string
	for _, category := range categories {
		for _, account := range MonitoredAccounts[category] {
			if !seen[account] {
				seen[account] = true
				accounts = append(accounts, account)
			}
		}
	}
	sort.Strings(accounts)
	return accounts
}
