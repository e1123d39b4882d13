package store

// Posts are keyed by id; entity lists are JSON-encoded columns. Indexes
// cover the query filters: username, created_at, sentiment label.
const schema = `
CREATE TABLE IF NOT EXISTS posts (
	id              TEXT PRIMARY KEY,
	username        TEXT NOT NULL,
	display_name    TEXT NOT NULL DEFAULT '',
	text            TEXT NOT NULL,
	created_at      TEXT NOT NULL,
	scraped_at      TEXT NOT NULL,
	likes           INTEGER NOT NULL DEFAULT 0,
	retweets        INTEGER NOT NULL DEFAULT 0,
	replies         INTEGER NOT NULL DEFAULT 0,
	views           INTEGER NOT NULL DEFAULT 0,
	is_verified     INTEGER NOT NULL DEFAULT 0,
	hashtags        TEXT NOT NULL DEFAULT '[]',
	mentions        TEXT NOT NULL DEFAULT '[]',
	urls            TEXT NOT NULL DEFAULT '[]',
	sentiment_score REAL NOT NULL DEFAULT 0,
	sentiment_label TEXT NOT NULL DEFAULT 'neutral',
	source          TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_username ON posts(username);
CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_posts_sentiment ON posts(sentiment_label);
CREATE INDEX IF NOT EXISTS idx_posts_scraped_at ON posts(scraped_at);
`
