package db

// Schema migrations, one table per migration.

var postgresMigrations = []Migration{
	{
		Version: 1,
		Name:    "create_contents_table",
		Up: `
			CREATE TABLE IF NOT EXISTS contents (
				id UUID PRIMARY KEY,
				original_content TEXT NOT NULL,
				content_type TEXT NOT NULL,
				source_info TEXT,
				object_key TEXT NOT NULL DEFAULT '',
				summary TEXT NOT NULL DEFAULT '',
				keywords TEXT NOT NULL DEFAULT '[]',
				tags TEXT NOT NULL DEFAULT '[]',
				sentiment DOUBLE PRECISION NOT NULL DEFAULT 0,
				category TEXT NOT NULL DEFAULT 'general',
				importance_score DOUBLE PRECISION NOT NULL DEFAULT 0.5,
				word_count INTEGER NOT NULL DEFAULT 0,
				reading_time INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				last_accessed TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_contents_created_at ON contents(created_at DESC);
			CREATE INDEX IF NOT EXISTS idx_contents_category ON contents(category);
			CREATE INDEX IF NOT EXISTS idx_contents_content_type ON contents(content_type);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_contents_content_type;
			DROP INDEX IF EXISTS idx_contents_category;
			DROP INDEX IF EXISTS idx_contents_created_at;
			DROP TABLE IF EXISTS contents;
		`,
	},
	{
		Version: 2,
		Name:    "create_tags_table",
		Up: `
			CREATE TABLE IF NOT EXISTS tags (
				id UUID PRIMARY KEY,
				name TEXT NOT NULL UNIQUE,
				description TEXT NOT NULL DEFAULT '',
				count INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_tags_count ON tags(count DESC);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_tags_count;
			DROP TABLE IF EXISTS tags;
		`,
	},
	{
		Version: 3,
		Name:    "create_daily_stats_table",
		Up: `
			CREATE TABLE IF NOT EXISTS daily_stats (
				date TEXT PRIMARY KEY,
				new_contents INTEGER NOT NULL DEFAULT 0,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`,
		Down: `
			DROP TABLE IF EXISTS daily_stats;
		`,
	},
	{
		Version: 4,
		Name:    "create_insights_table",
		Up: `
			CREATE TABLE IF NOT EXISTS insights (
				id UUID PRIMARY KEY,
				insight_text TEXT NOT NULL,
				period_start TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_insights_created_at ON insights(created_at DESC);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_insights_created_at;
			DROP TABLE IF EXISTS insights;
		`,
	},
}
