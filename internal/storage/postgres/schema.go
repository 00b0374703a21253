package postgres

import (
	"context"
	"fmt"
)

// schema is applied in order by Migrate. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS niches (
	id          TEXT PRIMARY KEY,
	niche_name  TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	category_id TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS queries (
	id          TEXT PRIMARY KEY,
	query       TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS sub_queries (
	id          TEXT PRIMARY KEY,
	query_id    TEXT NOT NULL REFERENCES queries (id),
	sub_query   TEXT NOT NULL,
	added_by    TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	UNIQUE (query_id, sub_query)
)`,
	`CREATE TABLE IF NOT EXISTS scraped_progress (
	id               TEXT PRIMARY KEY,
	niche_id         TEXT NOT NULL,
	query_id         TEXT NOT NULL,
	sub_query_id     TEXT,
	done             BOOLEAN NOT NULL DEFAULT FALSE,
	page_num         INTEGER,
	start_param      INTEGER,
	search_engine_id TEXT,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS scraped_progress_triple_idx
	ON scraped_progress (niche_id, query_id, COALESCE(sub_query_id, ''))`,
	`CREATE INDEX IF NOT EXISTS scraped_progress_pending_idx
	ON scraped_progress (created_at) WHERE NOT done`,
	`CREATE INDEX IF NOT EXISTS scraped_progress_created_idx
	ON scraped_progress (created_at DESC)`,
}

// Migrate creates the tables and indexes the stores rely on.
func Migrate(ctx context.Context, db Pool) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
